package webhook

import "errors"

/* Dispatch error taxonomy. Per-subscriber lookup failures never appear here:
 * the resolver absorbs them into a non-match, and only the global
 * "no subscriber found" is surfaced.
 */

var (
	// ErrReferenceMissing indicates the event payload carried no payment reference
	ErrReferenceMissing = errors.New("payment reference missing from event payload")

	// ErrNoSubscriber indicates no enabled subscriber confirmed ownership of the reference
	ErrNoSubscriber = errors.New("no subscriber owns the payment reference")

	// ErrForwardFailed indicates the downstream target failed or was unreachable
	ErrForwardFailed = errors.New("forwarding to subscriber failed")
)
