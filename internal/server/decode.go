package server

import (
	"bytes"
	"encoding/base64"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"orders-webhook-relay/internal/model"

	json "github.com/goccy/go-json"
)

// ClientErrorKind tells apart the two ways a delivery can be rejected
// before anything is written.
type ClientErrorKind int

const (
	// MissingMessage: empty or unparsable body, or no "message" key.
	MissingMessage ClientErrorKind = iota + 1
	// InvalidJSON: "data" is not base64 of UTF-8 JSON.
	InvalidJSON
)

func (k ClientErrorKind) String() string {
	switch k {
	case MissingMessage:
		return "no_message"
	case InvalidJSON:
		return "invalid_json"
	default:
		return "unknown"
	}
}

// ClientError is a rejected delivery. It always maps to a 4xx and is
// never retried by the relay.
type ClientError struct {
	Kind ClientErrorKind
	Err  error
}

func (e *ClientError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

var errNoMessage = errors.New(`envelope has no "message"`)

// DecodeEnvelope parses the push request body.
func DecodeEnvelope(body []byte) (*model.PushEnvelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, &ClientError{Kind: MissingMessage, Err: errors.New("empty body")}
	}

	var env model.PushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ClientError{Kind: MissingMessage, Err: err}
	}
	if env.Message == nil {
		return nil, &ClientError{Kind: MissingMessage, Err: errNoMessage}
	}
	return &env, nil
}

// DecodeData base64-decodes msg.Data. Padded and unpadded standard
// encodings are both accepted; the result must be valid UTF-8.
func DecodeData(msg *model.PushMessage) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil {
		raw, rawErr := base64.RawStdEncoding.DecodeString(msg.Data)
		if rawErr != nil {
			return nil, &ClientError{Kind: InvalidJSON, Err: fmt.Errorf("decode base64: %w", err)}
		}
		data = raw
	}
	if !utf8.Valid(data) {
		return nil, &ClientError{Kind: InvalidJSON, Err: errors.New("data is not valid UTF-8")}
	}
	return data, nil
}

// ParsePayload parses exactly one JSON value of any type. Numbers are
// kept as json.Number so order ids survive re-serialization unchanged.
//
// Syntax is checked with encoding/json: goccy's Valid and Decode accept
// truncated literals, leading zeros, extra closing brackets and raw
// control characters in strings.
func ParsePayload(data []byte) (any, error) {
	if !stdjson.Valid(data) {
		return nil, &ClientError{Kind: InvalidJSON, Err: errors.New("payload is not valid JSON")}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ClientError{Kind: InvalidJSON, Err: err}
	}
	return v, nil
}

// DecodeOrder runs the envelope decoder and the payload validator.
// raw is the decoded message data, returned for logging.
func DecodeOrder(body []byte) (order model.Order, raw []byte, err error) {
	env, err := DecodeEnvelope(body)
	if err != nil {
		return model.Order{}, nil, err
	}

	raw, err = DecodeData(env.Message)
	if err != nil {
		return model.Order{}, nil, err
	}

	payload, err := ParsePayload(raw)
	if err != nil {
		return model.Order{}, raw, err
	}

	return model.Order{
		Payload:      payload,
		MessageID:    env.Message.MessageID,
		PublishTime:  env.Message.PublishTime,
		Subscription: env.Subscription,
	}, raw, nil
}
