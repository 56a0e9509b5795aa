package artifact

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	MissingFile   ErrorKind = "missing_file"
	MalformedJSON ErrorKind = "malformed_json"
)

var (
	ErrMissingFile   = errors.New("artifact: missing file")
	ErrMalformedJSON = errors.New("artifact: malformed json")
)

// ArtifactError rejects a run outright; there is no partial load.
type ArtifactError struct {
	Kind     ErrorKind
	Location string
	File     string
	Line     int
	Err      error
}

func (e *ArtifactError) Error() string {
	where := e.File
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d", e.File, e.Line)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s (%s)", e.Location, e.Kind, where)
	}
	return fmt.Sprintf("%s: %s (%s): %v", e.Location, e.Kind, where, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

func (e *ArtifactError) Is(target error) bool {
	switch target {
	case ErrMissingFile:
		return e.Kind == MissingFile
	case ErrMalformedJSON:
		return e.Kind == MalformedJSON
	}
	return false
}

func missing(location, file string, err error) *ArtifactError {
	return &ArtifactError{Kind: MissingFile, Location: location, File: file, Err: err}
}

func malformed(location, file string, line int, err error) *ArtifactError {
	return &ArtifactError{Kind: MalformedJSON, Location: location, File: file, Line: line, Err: err}
}
