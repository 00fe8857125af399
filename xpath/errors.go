package xpath

import "fmt"

// A QueryError reports a malformed or unevaluable query expression.
type QueryError struct {
	Expr    string
	Message string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q: %s", e.Expr, e.Message)
}

func queryErrf(expr, format string, args ...any) *QueryError {
	return &QueryError{Expr: expr, Message: fmt.Sprintf(format, args...)}
}
