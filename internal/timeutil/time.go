package timeutil

import (
	"strconv"
	"time"

	gojson "github.com/goccy/go-json"
)

// Time marshals as RFC 3339 and unmarshals from either RFC 3339 or a
// unix timestamp, so logs produced with both conventions stay readable.
type Time time.Time

func (t *Time) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == "{}" {
		return nil
	}
	if s[0] == '"' {
		tt, err := time.Parse(`"`+time.RFC3339+`"`, s)
		if err != nil {
			return err
		}
		*t = Time(tt)
	} else {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*t = Time(time.Unix(i, 0))
	}
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	return gojson.Marshal(time.Time(t))
}

func (t Time) Time() time.Time {
	return time.Time(t)
}

func (t Time) Equal(u Time) bool {
	return t.Time().Equal(u.Time())
}
