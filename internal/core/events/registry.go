package events

import (
	"encoding/json"
	"fmt"
)

// ErrUnknownKind is returned for event kinds absent from the registry. An
// unknown kind is a programming or data error, not something to retry.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown event kind %q", e.Kind)
}

// decoders is a closed dispatch table: every publishable event kind maps to
// its decoder here, at compile time. There is no reflection-based lookup.
var decoders = map[string]func([]byte) (Event, error){
	KindTransferInitiated: decodeInto[TransferInitiated],
	KindTransferCompleted: decodeInto[TransferCompleted],
	KindTransferFailed:    decodeInto[TransferFailed],
	KindFraudRejected:     decodeInto[FraudRejected],
}

func decodeInto[T Event](payload []byte) (Event, error) {
	var e T
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return e, nil
}

// Decode resolves the event kind and deserializes the payload.
func Decode(kind string, payload []byte) (Event, error) {
	decode, ok := decoders[kind]
	if !ok {
		return nil, &UnknownKindError{Kind: kind}
	}
	e, err := decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return e, nil
}
