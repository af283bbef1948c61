package render

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks a renderer that cannot run: a missing binary or soundfont.
var ErrConfiguration = errors.New("renderer not configured")

// ErrTickOverflow marks a note placed beyond what a MIDI file can address.
var ErrTickOverflow = errors.New("note position exceeds the MIDI tick range")

// ToolError is a failed external tool invocation.
type ToolError struct {
	Tool   string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Tool, e.Err, e.Output)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
