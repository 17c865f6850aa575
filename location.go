package taut

import (
	"fmt"
	"runtime"
)

// Location is a source position, used for test registration sites,
// assertion call sites (with optional override), and log entries.
type Location struct {
	File string
	Line int
	Col  int
}

func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// callerLocation captures the caller `skip` frames up from its own caller.
// skip=0 means "my direct caller".
func callerLocation(skip int) Location {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Location{}
	}
	col := 1
	if fn := runtime.FuncForPC(pc); fn != nil {
		// runtime doesn't expose column directly, so Col stays 1 and
		// exprscan picks the leftmost call on the line; several
		// assertions on one line are not told apart.
		_ = fn
	}
	return Location{File: file, Line: line, Col: col}
}
