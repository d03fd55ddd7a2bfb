package report

import "errors"

// Failure kinds surfaced to callers. Match them with errors.Is.
var (
	// ErrExportConnection covers authorization or network failures reaching the sheet.
	ErrExportConnection = errors.New("export connection failed")
	// ErrExportWrite covers failures while appending rows after connecting.
	ErrExportWrite = errors.New("export write failed")
	// ErrReportGeneration covers any failure while building the PDF.
	ErrReportGeneration = errors.New("report generation failed")
)

// Error carries a failure kind and its cause.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func wrap(kind, err error) error {
	return &Error{Kind: kind, Err: err}
}
