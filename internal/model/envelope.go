// internal/model/envelope.go
package model

// PushEnvelope
// ------------------------------------------------------------
// Body of a push delivery from the order-notification subscription.
// Only Message.Data carries the order itself; the rest is delivery
// metadata that is copied onto the stored object when present.
//
// Message is a pointer so that `{"message": null}` and a missing key are
// both seen as "no message".
type PushEnvelope struct {
	Message      *PushMessage `json:"message"`
	Subscription string       `json:"subscription,omitempty"`
}

// PushMessage is the message container inside the envelope.
type PushMessage struct {
	Data        string            `json:"data"`                  // base64 (standard alphabet) order JSON
	MessageID   string            `json:"messageId,omitempty"`   // broker-assigned id, stable across redeliveries
	PublishTime string            `json:"publishTime,omitempty"` // RFC 3339, set by the broker
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Order
// ------------------------------------------------------------
// A validated order payload on its way to the blob store.
// Payload is the parsed JSON value (numbers kept as json.Number);
// it is re-serialized by the writer and never mutated.
type Order struct {
	Payload any

	// Delivery metadata from the envelope, empty when the publisher
	// did not supply it.
	MessageID    string
	PublishTime  string
	Subscription string
}
