package callid

import "fmt"

// AnonymousFunction is the display name used for call sites without a
// function name.
const AnonymousFunction = "(anonymous function)"

type (
	// ID identifies which function a call was made to. Two calls belong
	// to the same logical callee when their IDs are equal.
	ID struct {
		Function string `json:"function,omitempty"`
		URL      string `json:"url,omitempty"`
		Line     uint32 `json:"lineno,omitempty"`
		Column   uint32 `json:"colno,omitempty"`
	}
)

// DisplayName returns the function name, or a placeholder when the call
// site is anonymous.
func (id ID) DisplayName() string {
	if id.Function == "" {
		return AnonymousFunction
	}
	return id.Function
}

func (id ID) String() string {
	if id.URL == "" {
		return id.DisplayName()
	}
	return fmt.Sprintf("%s (%s:%d:%d)", id.DisplayName(), id.URL, id.Line, id.Column)
}
