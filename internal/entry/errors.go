package entry

import "fmt"

// TemplateError reports a DN template that cannot be resolved. It is raised
// before any directory operation.
type TemplateError struct {
	Template  string
	Attribute string // Placeholder that failed, if any
	Reason    string
	Err       error
}

func (e *TemplateError) Error() string {
	msg := fmt.Sprintf("cannot resolve dn template %q: %s", e.Template, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// ValidationError reports invalid module parameters. Message is shown to the
// user as it is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
