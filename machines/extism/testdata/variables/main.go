// Command variables is an Extism plugin exporting evmod variables. Build it
// with:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o variables.wasm .
//
// and import it with the entrypoints NEXT_KEY, PREVIOUS_KEY and WORD_COUNT.
package main

import (
	"strings"

	"github.com/extism/go-pdk"
)

// Event holds the event properties the plugin reads. The host sends every
// property as one JSON object.
type Event struct {
	Direction string `json:"direction"`
	Value     string `json:"value"`
}

func readEvent() (Event, bool) {
	var ev Event
	if err := pdk.InputJSON(&ev); err != nil {
		pdk.SetError(err)
		return ev, false
	}
	return ev, true
}

func output(v any) int32 {
	if err := pdk.OutputJSON(v); err != nil {
		pdk.SetError(err)
		return 1
	}
	return 0
}

//go:wasmexport NEXT_KEY
func nextKey() int32 {
	ev, ok := readEvent()
	if !ok {
		return 1
	}
	if ev.Direction == "rtl" {
		return output("ArrowLeft")
	}
	return output("ArrowRight")
}

//go:wasmexport PREVIOUS_KEY
func previousKey() int32 {
	ev, ok := readEvent()
	if !ok {
		return 1
	}
	if ev.Direction == "rtl" {
		return output("ArrowRight")
	}
	return output("ArrowLeft")
}

//go:wasmexport WORD_COUNT
func wordCount() int32 {
	ev, ok := readEvent()
	if !ok {
		return 1
	}
	return output(len(strings.Fields(ev.Value)))
}

func main() {}
