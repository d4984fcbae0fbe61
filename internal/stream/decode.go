package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"strings"

	"github.com/primebench/primebench/internal/results"
)

var (
	errEmptyPayload = errors.New("empty payload")
	errNoValue      = errors.New("missing prime field")
	errNoTime       = errors.New("missing time field")
	errTrailingData = errors.New("trailing data after record")
)

// wireRecord accepts the producer's field names plus the generic aliases.
type wireRecord struct {
	Prime   json.RawMessage `json:"prime"`
	Value   json.RawMessage `json:"value"`
	Time    json.RawMessage `json:"time"`
	Elapsed json.RawMessage `json:"elapsed"`
}

// DecodeItem parses one data frame payload. The value field may be a JSON
// string or number but must be a decimal integer; it is kept as exact text.
// The time field must be a finite, non-negative number.
func DecodeItem(payload string) (results.Item, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return results.Item{}, &DecodeError{Payload: payload, Err: errEmptyPayload}
	}

	var rec wireRecord
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return results.Item{}, &DecodeError{Payload: payload, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return results.Item{}, &DecodeError{Payload: payload, Err: errTrailingData}
	}

	rawValue := firstPresent(rec.Prime, rec.Value)
	if rawValue == nil {
		return results.Item{}, &DecodeError{Payload: payload, Err: errNoValue}
	}
	value, err := decodeInteger(rawValue)
	if err != nil {
		return results.Item{}, &DecodeError{Payload: payload, Err: err}
	}

	rawTime := firstPresent(rec.Time, rec.Elapsed)
	if rawTime == nil {
		return results.Item{}, &DecodeError{Payload: payload, Err: errNoTime}
	}
	elapsed, err := decodeSeconds(rawTime)
	if err != nil {
		return results.Item{}, &DecodeError{Payload: payload, Err: err}
	}

	return results.Item{Value: value, Elapsed: elapsed}, nil
}

func firstPresent(fields ...json.RawMessage) json.RawMessage {
	for _, f := range fields {
		if len(f) > 0 && !bytes.Equal(f, []byte("null")) {
			return f
		}
	}
	return nil
}

func decodeInteger(raw json.RawMessage) (string, error) {
	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", fmt.Errorf("prime: %w", err)
		}
		text = strings.TrimSpace(text)
	} else {
		text = string(raw)
	}

	if !isDecimalInteger(text) {
		return "", fmt.Errorf("prime %q is not a decimal integer", truncate(text, 32))
	}
	n, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return "", fmt.Errorf("prime %q is not a decimal integer", truncate(text, 32))
	}
	return n.String(), nil
}

// isDecimalInteger rejects the underscore and base-prefix forms that
// big.Int.SetString would otherwise tolerate for base 0.
func isDecimalInteger(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func decodeSeconds(raw json.RawMessage) (float64, error) {
	if raw[0] == '"' {
		return 0, fmt.Errorf("time must be a number, got string %s", truncate(string(raw), 32))
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, fmt.Errorf("time: %w", err)
	}
	v, err := num.Float64()
	if err != nil {
		return 0, fmt.Errorf("time: %w", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("time %s is not finite", num)
	}
	if v < 0 {
		return 0, fmt.Errorf("time %s is negative", num)
	}
	return v, nil
}
