// Package errs defines the error type shared by the ordered store, the
// secondary index and their untyped adapters.
//
// Every error carries a Code. Callers match on the code either through the
// sentinels with errors.Is:
//
//	if errors.Is(err, errs.ErrUniquenessViolation) { ... }
//
// or through the Is* helpers, which also look through wrapped errors.
package errs
