package serializer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFieldNotFound is returned when a selected key is absent from a map.
	ErrFieldNotFound = errors.New("field not found")
	// ErrMethodNotFound is returned when a record or object has no member
	// with the selected name.
	ErrMethodNotFound = errors.New("method not found")
)

type Path []PathElement

// PathElement is an output key (string) or a sequence index (int).
type PathElement any

// Error is a serialization failure located in the output document.
type Error struct {
	Message string `json:"message"`
	Path    Path   `json:"path,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", pathToString(e.Path), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Stats describes the work done by one Run call.
type Stats struct {
	// Instructions is the number of (record type, selection) instructions built.
	Instructions int
	// Records is the number of record values visited.
	Records int
}

func pathToString(path Path) string {
	var b strings.Builder
	for i, elem := range path {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			fmt.Fprintf(&b, "[%d]", v)
		}
	}
	return b.String()
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}
