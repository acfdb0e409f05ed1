package store

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

var (
	// ErrMalformedState is wrapped by every DataError.
	ErrMalformedState = errors.New("malformed quest state")

	// ErrRootNotDir is returned when the repository root is missing or is
	// a file. The message leaves the path out; callers name it as given.
	ErrRootNotDir = errors.New("repository root is not a directory")
)

// DataError is a fatal problem with a machine-written state file. Path is
// relative to the repository root so the message is safe to show in CI logs.
type DataError struct {
	Path    string
	Problem string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("invalid quest state %s: %s", e.Path, e.Problem)
}

func (e *DataError) Unwrap() error {
	return ErrMalformedState
}

// reason describes err without the absolute path that filesystem errors
// usually carry.
func reason(err error) string {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}

// lineCol converts a byte offset into 1-based line and column numbers.
func lineCol(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := string(data[:offset])
	line := strings.Count(before, "\n") + 1
	col := len(before) - strings.LastIndex(before, "\n")
	return line, col
}
