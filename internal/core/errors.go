package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies structural failures that abort a dashboard render.
type ErrorKind string

const (
	KindFetch          ErrorKind = "FETCH"
	KindSchemaMismatch ErrorKind = "SCHEMA_MISMATCH"
	KindParse          ErrorKind = "PARSE"
)

// Error is a structural pipeline error. Per-record problems never produce one.
type Error struct {
	Kind    ErrorKind
	Op      string
	Err     error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Op)
}

// Unwrap allows errors.Is and errors.As to see the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithContext adds a key/value for logging.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// FetchError wraps a failure to obtain rows from the upstream source.
func FetchError(op string, err error) *Error {
	return &Error{Kind: KindFetch, Op: op, Err: err}
}

// SchemaMismatch reports configured columns that the source does not have.
func SchemaMismatch(op string, missing []string) *Error {
	return &Error{
		Kind:    KindSchemaMismatch,
		Op:      op,
		Err:     fmt.Errorf("missing columns %q", missing),
		Context: map[string]any{"missing_columns": missing},
	}
}

// ParseError wraps a malformed sheet layout.
func ParseError(op string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Guidance returns the checklist shown to users for a failure of kind.
func Guidance(kind ErrorKind) []string {
	switch kind {
	case KindFetch:
		return []string{
			"Are the service account credentials configured (GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)?",
			"Is GOOGLE_SPREADSHEET_ID correct?",
			"Has the service account been granted read access to the spreadsheet?",
			"Is the data source reachable from this host?",
		}
	case KindSchemaMismatch:
		return []string{
			"Do the COLUMN_* settings match the spreadsheet header row exactly (case and spacing)?",
			"Do REP_COLUMN_PRIMARY and REP_COLUMN_SECONDARY name the two representative columns?",
			"Is the header in the first non-empty row of the worksheet?",
		}
	case KindParse:
		return []string{
			"Is the worksheet empty, or is the header row missing?",
			"Does the header row contain duplicate column names?",
			"Is GOOGLE_SHEET_NAME (or XLSX_SHEET) pointing at the data worksheet?",
		}
	default:
		return []string{
			"Check the server logs for the request ID shown below.",
		}
	}
}
