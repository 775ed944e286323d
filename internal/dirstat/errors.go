package dirstat

import (
	"errors"
	"fmt"
	"io/fs"
)

// OpenError reports a directory that could not be listed.
type OpenError struct {
	// Path is the directory that failed.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// StatError reports an entry whose metadata could not be read.
type StatError struct {
	// Path is the entry that failed.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *StatError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *StatError) Unwrap() error {
	return e.Err
}

// cause strips the *fs.PathError wrapper, since both error types carry the path themselves.
func cause(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}

	return err
}
