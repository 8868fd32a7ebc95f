package webhook

/* State represents where a dispatch flow is in its lifecycle:
 * Received -> Verifying -> Verified|Rejected -> Resolving -> Resolved|NotFound
 * -> Forwarding -> Forwarded|ForwardFailed
 * Rejected, NotFound, Forwarded, ForwardFailed and Errored are terminal.
 */
type State int

const (
	Received State = iota + 1
	Verifying
	Verified
	Rejected
	Resolving
	Resolved
	NotFound
	Forwarding
	Forwarded
	ForwardFailed
	Errored
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Received:
		return "received"
	case Verifying:
		return "verifying"
	case Verified:
		return "verified"
	case Rejected:
		return "rejected"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case NotFound:
		return "not_found"
	case Forwarding:
		return "forwarding"
	case Forwarded:
		return "forwarded"
	case ForwardFailed:
		return "forward_failed"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if no further transition can occur
func (s State) IsTerminal() bool {
	switch s {
	case Rejected, NotFound, Forwarded, ForwardFailed, Errored:
		return true
	default:
		return false
	}
}
