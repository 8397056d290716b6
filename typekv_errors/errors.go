// Provides common typekv errors definitions.
package typekv_errors

import "errors"

var (
	ErrUnknownType       = errors.New("typekv: unknown record type")
	ErrInvalidIdentifier = errors.New("typekv: invalid identifier")
	ErrAlreadyExists     = errors.New("typekv: record already exists")
	ErrNotFound          = errors.New("typekv: record not found")
	ErrRecordTooLarge    = errors.New("typekv: record too large")
	ErrInvalidSort       = errors.New("typekv: sort field is not a time field")
	ErrTooManyItems      = errors.New("typekv: too many items in bulk request")

	ErrBadCursor         = errors.New("typekv: malformed or mismatched cursor")
	ErrScanCapExceeded   = errors.New("typekv: candidate scan exceeded safety cap")
	ErrIncompleteListing = errors.New("typekv: store returned incomplete listing without cursor")
)
