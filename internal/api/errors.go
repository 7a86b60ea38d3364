package api

import "errors"

// Error kinds for store calls. Callers match with errors.Is; wrapped
// forms carry the operation name and any server-supplied message.
var (
	// ErrNoCredential means an authenticated call was attempted with no
	// stored credential.
	ErrNoCredential = errors.New("no credential")

	// ErrUnauthorized covers 401/403-equivalent responses. It is terminal
	// for the session: the caller must clear session state, not retry.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRecipientNotFound means the directory could not resolve a
	// recipient email to an identity.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrGrantRejected means the store refused a share grant request.
	ErrGrantRejected = errors.New("share grant rejected")

	// ErrProtocolError means a response did not carry the expected
	// {success, data, message} envelope shape.
	ErrProtocolError = errors.New("protocol error")

	// ErrNetworkFailure covers transport errors and deadline expiry.
	ErrNetworkFailure = errors.New("network failure")
)
