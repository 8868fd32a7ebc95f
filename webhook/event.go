package webhook

import (
	"encoding/json"
	"fmt"
)

/* InboundEvent represents one provider webhook for the duration of a single
 * dispatch. Raw preserves the body bytes exactly as received because the
 * signature (ours and the one re-verified downstream) covers that exact
 * representation; typed fields come from a separate parse and are never
 * serialized back.
 */
type InboundEvent struct {
	// Type is the provider event tag, e.g. "charge.success"
	Type string

	// Reference is the provider-assigned payment reference used as the routing key
	Reference string

	// Amount is the transaction amount in the provider's minor unit, when present
	Amount int64

	// Currency is the ISO currency code, when present
	Currency string

	// Raw is the byte-identical request body as received
	Raw []byte

	// Signature is the raw signature header value, passed through on forward
	Signature string
}

// eventEnvelope mirrors the provider's payload schema for field extraction
type eventEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

// ParseEvent extracts the typed fields from a raw provider payload. The
// payment reference is mandatory; everything else is carried when present.
func ParseEvent(raw []byte) (InboundEvent, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return InboundEvent{}, fmt.Errorf("parsing event payload: %w", err)
	}

	if envelope.Data.Reference == "" {
		return InboundEvent{}, ErrReferenceMissing
	}

	return InboundEvent{
		Type:      envelope.Event,
		Reference: envelope.Data.Reference,
		Amount:    envelope.Data.Amount,
		Currency:  envelope.Data.Currency,
		Raw:       raw,
	}, nil
}
