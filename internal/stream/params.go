package stream

import (
	"net/url"
	"strconv"
)

// Request bounds accepted by the producer.
const (
	MinItemSize       = 1
	MaxItemSize       = 1500
	MinIterationCount = 5
	MaxIterationCount = 100
)

// Params are the request parameters for one stream.
type Params struct {
	// ItemSize is the number of decimal digits of each generated value.
	ItemSize int `json:"itemSize" yaml:"item_size" cbor:"1,keyasint"`
	// IterationCount is the number of items to generate.
	IterationCount int `json:"iterationCount" yaml:"iteration_count" cbor:"2,keyasint"`
}

// Validate returns a *ValidationError for the first field out of range.
func (p Params) Validate() error {
	if p.ItemSize < MinItemSize || p.ItemSize > MaxItemSize {
		return &ValidationError{Field: "itemSize", Value: p.ItemSize, Min: MinItemSize, Max: MaxItemSize}
	}
	if p.IterationCount < MinIterationCount || p.IterationCount > MaxIterationCount {
		return &ValidationError{Field: "iterationCount", Value: p.IterationCount, Min: MinIterationCount, Max: MaxIterationCount}
	}
	return nil
}

// Query encodes the parameters as a URL query string.
func (p Params) Query() string {
	v := url.Values{}
	v.Set("itemSize", strconv.Itoa(p.ItemSize))
	v.Set("iterationCount", strconv.Itoa(p.IterationCount))
	return v.Encode()
}
