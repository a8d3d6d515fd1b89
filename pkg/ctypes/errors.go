package ctypes

import "fmt"

// InternalError reports a broken invariant between pipeline stages. It
// never describes a defect in the source program, only in the compiler.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal: " + e.Msg }

func Internalf(format string, args ...any) error {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}
