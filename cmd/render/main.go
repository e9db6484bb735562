package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/pierrec/lz4"

	"github.com/treeprof/treeprof/internal/calltree"
	"github.com/treeprof/treeprof/internal/chrometrace"
	"github.com/treeprof/treeprof/internal/errorutil"
	"github.com/treeprof/treeprof/internal/pprofile"
	"github.com/treeprof/treeprof/internal/profile"
	"github.com/treeprof/treeprof/internal/replay"
	"github.com/treeprof/treeprof/internal/speedscope"
	"github.com/treeprof/treeprof/internal/treeprint"
)

func main() {
	args := os.Args[1:]
	if len(args) < 2 || len(args) > 3 {
		fmt.Println("./render <event log path or URL> <calltree|speedscope|chrometrace|pprof|text> [output path]") // nolint
		return
	}

	source, format := args[0], args[1]

	l, err := readLog(source)
	if err != nil {
		log.Fatal(err)
	}

	vm, err := replay.NewVM(l)
	if err != nil {
		log.Fatal(err)
	}

	profiles, err := vm.Run()
	if err != nil {
		log.Fatal(err)
	}
	if len(profiles) == 0 {
		log.Fatal(fmt.Errorf("render: %w: no finished profiles in the event log", errorutil.ErrNoResults))
	}

	var out io.Writer = os.Stdout
	var outputFile *os.File
	if len(args) == 3 {
		outputFile, err = os.Create(args[2])
		if err != nil {
			log.Fatal(err)
		}
		out = outputFile
	}

	if err := render(out, format, l.ProfileGroup, profiles); err != nil {
		log.Fatal(err)
	}

	if outputFile != nil {
		if err := outputFile.Close(); err != nil {
			log.Fatal(err)
		}
	}
}

// readLog reads an event log from a local file, lz4-compressed or not,
// or from an HTTP(S) URL.
func readLog(source string) (replay.Log, error) {
	var l replay.Log

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		client := httpclient.NewClient(
			httpclient.WithHTTPTimeout(30*time.Second),
			httpclient.WithRetryCount(3),
		)
		resp, err := client.Get(source, nil)
		if err != nil {
			return l, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return l, fmt.Errorf("render: unexpected status code %d while fetching the event log", resp.StatusCode)
		}
		return l, gojson.NewDecoder(resp.Body).Decode(&l)
	}

	f, err := os.Open(source)
	if err != nil {
		return l, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(source, ".lz4") {
		r = lz4.NewReader(f)
	}
	return l, gojson.NewDecoder(r).Decode(&l)
}

func render(w io.Writer, format string, group uint64, profiles []*profile.Profile) error {
	switch format {
	case "calltree":
		return writeJSON(w, calltree.FromProfiles(profiles))
	case "speedscope":
		return writeJSON(w, speedscope.FromProfiles(group, profiles))
	case "chrometrace":
		return writeJSON(w, chrometrace.FromProfiles(group, profiles))
	case "pprof":
		return pprofile.FromProfiles(profiles).Write(w)
	case "text":
		return treeprint.Write(w, profiles)
	default:
		return fmt.Errorf("render: %s is not a supported format", format)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	e := gojson.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
