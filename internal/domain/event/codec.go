package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrUnknownType = errors.New("unknown event type")

type envelope struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transactionId"`
	Type          Type            `json:"type"`
	Data          json.RawMessage `json:"data"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// EncodeData serializes a payload for storage next to its type tag.
func EncodeData(d Data) ([]byte, error) {
	if d == nil {
		return nil, ErrUnknownType
	}
	return json.Marshal(d)
}

// DecodeData rebuilds the payload stored under typ.
func DecodeData(typ Type, raw []byte) (Data, error) {
	var (
		d   Data
		err error
	)

	switch typ {
	case TransactionCreated:
		var v Created
		err = json.Unmarshal(raw, &v)
		d = v
	case TransactionProcessing:
		var v Processing
		err = json.Unmarshal(raw, &v)
		d = v
	case TransactionCompleted:
		var v Completed
		err = json.Unmarshal(raw, &v)
		d = v
	case TransactionFailed:
		var v Failed
		err = json.Unmarshal(raw, &v)
		d = v
	case TransactionCancelled:
		var v Cancelled
		err = json.Unmarshal(raw, &v)
		d = v
	case PaymentAttempt:
		var v Attempt
		err = json.Unmarshal(raw, &v)
		d = v
	case Refund:
		var v Refunded
		err = json.Unmarshal(raw, &v)
		d = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", typ, err)
	}
	return d, nil
}

// Marshal encodes the whole event as a self-describing JSON envelope.
func Marshal(evt Event) ([]byte, error) {
	data, err := EncodeData(evt.Data)
	if err != nil {
		return nil, err
	}

	return json.Marshal(envelope{
		ID:            evt.ID,
		TransactionID: evt.TransactionID,
		Type:          evt.Type(),
		Data:          data,
		CreatedAt:     evt.CreatedAt,
	})
}

func Unmarshal(b []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Event{}, err
	}

	data, err := DecodeData(env.Type, env.Data)
	if err != nil {
		return Event{}, err
	}

	return Event{
		ID:            env.ID,
		TransactionID: env.TransactionID,
		Data:          data,
		CreatedAt:     env.CreatedAt,
	}, nil
}
