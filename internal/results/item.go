// Package results holds the ordered log of items received from a stream
// together with a running aggregate that is maintained incrementally.
package results

import "math/big"

// Item is one unit produced upstream: an arbitrary-precision integer and
// the time the producer spent computing it.
type Item struct {
	// Value is the canonical decimal text of the integer. It is kept as
	// text so that values with thousands of digits survive exactly.
	Value   string  `json:"value" cbor:"1,keyasint"`
	Elapsed float64 `json:"time" cbor:"2,keyasint"`
}

// Int parses Value. It returns nil if Value is not a decimal integer, which
// cannot happen for items produced by the stream decoder.
func (it Item) Int() *big.Int {
	n, ok := new(big.Int).SetString(it.Value, 10)
	if !ok {
		return nil
	}
	return n
}

// Digits returns the number of decimal digits in Value, ignoring the sign.
func (it Item) Digits() int {
	if len(it.Value) > 0 && it.Value[0] == '-' {
		return len(it.Value) - 1
	}
	return len(it.Value)
}
