package tree

import "fmt"

// A PathError reports an invalid ElementPath expression.
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Message)
}

func errPath(path, message string) *PathError {
	return &PathError{Path: path, Message: message}
}

// An EncodingError reports that serialized output could not be
// represented in the requested character encoding.
type EncodingError struct {
	Encoding string
	Message  string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %q: %s", e.Encoding, e.Message)
}
