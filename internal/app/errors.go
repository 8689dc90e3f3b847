package app

import "errors"

// ErrCredentialsMissing and related errors describe orchestration failures.
var (
	ErrCredentialsMissing = errors.New("catalog username and client id are required")
	ErrNoPendingReport    = errors.New("no pending report")
	ErrReportMismatch     = errors.New("report id does not match the pending report")
)
