package service

import (
	"errors"
	"fmt"
)

// Kind classifies service failures. Callers branch on Kind; Code is the
// machine-readable detail surfaced to API clients.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindState         Kind = "state"
	KindNotFound      Kind = "not_found"
	KindPersistence   Kind = "persistence"
)

// Error is the typed error returned by the preflight services.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and Code so wrapped copies of a sentinel compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

var (
	ErrDocumentRequired = &Error{Kind: KindValidation, Code: "INVALID_DOCUMENT", Message: "document_id is required"}
	ErrInvalidAction    = &Error{Kind: KindValidation, Code: "INVALID_ACTION", Message: "unknown or disabled action"}
	ErrInvalidRole      = &Error{Kind: KindValidation, Code: "INVALID_ROLE", Message: "unknown custody role"}
	ErrInvalidPayload   = &Error{Kind: KindValidation, Code: "INVALID_PAYLOAD", Message: "payload must be a JSON object"}
	ErrInvalidFinding   = &Error{Kind: KindValidation, Code: "INVALID_FINDING", Message: "finding requires section and code"}
	ErrInvalidStatus    = &Error{Kind: KindValidation, Code: "INVALID_STATUS", Message: "unknown finding status"}
	ErrInvalidQuestion  = &Error{Kind: KindValidation, Code: "INVALID_QUESTION", Message: "question is required"}
	ErrInvalidContext   = &Error{Kind: KindValidation, Code: "INVALID_CONTEXT", Message: "preflight_context must be valid JSON"}
	ErrNoRequestIDs     = &Error{Kind: KindValidation, Code: "INVALID_REQUEST_IDS", Message: "request_ids is required"}
	ErrBatchIDRequired  = &Error{Kind: KindValidation, Code: "INVALID_BATCH", Message: "batch id is required"}
	ErrInvalidExportID  = &Error{Kind: KindValidation, Code: "INVALID_EXPORT_ID", Message: "invalid export id"}

	ErrRoleInsufficient = &Error{Kind: KindAuthorization, Code: "ROLE_INSUFFICIENT", Message: "role may not perform this action"}
	ErrIllegalState     = &Error{Kind: KindState, Code: "ILLEGAL_STATE", Message: "action is not legal at the current gate color"}
	ErrBatchExists      = &Error{Kind: KindState, Code: "BATCH_EXISTS", Message: "batch already exists"}
	ErrLedgerContended  = &Error{Kind: KindState, Code: "LEDGER_CONTENDED", Message: "document ledger kept changing, retry the action"}

	ErrDocumentNotFound = &Error{Kind: KindNotFound, Code: "DOCUMENT_NOT_FOUND", Message: "document not found"}
	ErrFindingNotFound  = &Error{Kind: KindNotFound, Code: "FINDING_NOT_FOUND", Message: "finding not found"}
	ErrBatchNotFound    = &Error{Kind: KindNotFound, Code: "BATCH_NOT_FOUND", Message: "batch not found"}
	ErrExportNotFound   = &Error{Kind: KindNotFound, Code: "EXPORT_NOT_FOUND", Message: "export not found"}
)

// persistence wraps a storage failure. The message is safe to show; the
// cause is kept for logs only.
func persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Code: "PERSISTENCE_FAILED", Message: op + " failed", Err: err}
}

// withCause returns a copy of sentinel carrying err.
func withCause(sentinel *Error, err error) *Error {
	e := *sentinel
	e.Err = err
	return &e
}

// IsKind reports whether err is a service Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
