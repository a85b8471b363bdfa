package service

import "errors"

var (
	// ErrNotFound: no monthly tracking document or day entry exists for the
	// requested operation.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState: the operation does not apply to the entry's current
	// state (e.g. pausing without an open check-in). No mutation is applied.
	ErrInvalidState = errors.New("invalid state")

	// ErrConstraintViolation: the find-or-create of a monthly document lost
	// the creation race twice. Surfaced as fatal for the request.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrDuplicateMonth is returned by Store implementations when inserting
	// a (user, month, year) document that already exists. The resolver
	// treats it as "re-fetch and retry", not as a caller-visible failure.
	ErrDuplicateMonth = errors.New("duplicate monthly tracking")
)
