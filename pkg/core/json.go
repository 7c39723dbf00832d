package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNilValue is returned when encoding or decoding nil.
var ErrNilValue = errors.New("core: nil value")

// JSONEncode encodes a value to JSON bytes (fail-fast on nil).
func JSONEncode(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("json encode: %w", ErrNilValue)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return data, nil
}

// JSONDecode decodes JSON bytes into v, which must be a non-nil pointer.
func JSONDecode(data []byte, v interface{}) error {
	if v == nil {
		return fmt.Errorf("json decode: %w", ErrNilValue)
	}
	if len(data) == 0 {
		return fmt.Errorf("json decode: empty input")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	return nil
}
