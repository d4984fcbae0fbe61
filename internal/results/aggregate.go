package results

import "math"

// Aggregate is the running summary of every elapsed time appended so far.
// Mean is updated with Welford's method, so appends cost O(1) and no
// unbounded running total is ever accumulated.
type Aggregate struct {
	Count int     `json:"count" cbor:"1,keyasint"`
	Mean  float64 `json:"mean" cbor:"2,keyasint"`
	Min   float64 `json:"min" cbor:"3,keyasint"`
	Max   float64 `json:"max" cbor:"4,keyasint"`
	// M2 is the sum of squared deviations from the mean.
	M2 float64 `json:"m2" cbor:"5,keyasint"`
}

// EmptyAggregate returns the aggregate of zero items.
func EmptyAggregate() Aggregate {
	return Aggregate{}
}

// Update returns the aggregate with one more observation folded in. The
// receiver is not modified. elapsed must be finite and non-negative; the
// stream decoder rejects anything else before it gets here.
func (a Aggregate) Update(elapsed float64) Aggregate {
	n := a.Count + 1
	delta := elapsed - a.Mean
	mean := a.Mean + delta/float64(n)

	next := Aggregate{
		Count: n,
		Mean:  mean,
		Min:   a.Min,
		Max:   a.Max,
		M2:    a.M2 + delta*(elapsed-mean),
	}
	if a.Count == 0 || elapsed < a.Min {
		next.Min = elapsed
	}
	if a.Count == 0 || elapsed > a.Max {
		next.Max = elapsed
	}
	return next
}

// Variance returns the population variance, or 0 for fewer than two items.
func (a Aggregate) Variance() float64 {
	if a.Count < 2 {
		return 0
	}
	return a.M2 / float64(a.Count)
}

// StdDev returns the population standard deviation.
func (a Aggregate) StdDev() float64 {
	return math.Sqrt(a.Variance())
}
