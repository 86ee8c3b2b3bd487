package authz

import "errors"

var (
	// ErrExpired rejects an authorization whose deadline has passed. The
	// caller may retry with a freshly signed authorization.
	ErrExpired = errors.New("authz: authorization expired")
	// ErrBadSignature covers malformed signatures, recovery failures and
	// authority mismatches alike. A stale nonce surfaces the same way on
	// purpose: it is indistinguishable from tampering.
	ErrBadSignature = errors.New("authz: bad signature")
	// ErrNotConfigured signals a verifier without a trusted authority.
	ErrNotConfigured = errors.New("authz: trusted authority not configured")
)
