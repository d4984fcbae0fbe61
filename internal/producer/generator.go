package producer

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/primebench/primebench/internal/stream"
)

// Record is one generated prime as sent on the wire.
type Record struct {
	Index int     `json:"index"`
	Prime string  `json:"prime"`
	Time  float64 `json:"time"`
}

// Generator produces timed primes.
type Generator struct {
	rounds  int
	metrics *Metrics

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(rounds int, seed int64, metrics *Metrics) *Generator {
	if rounds < 1 {
		rounds = 20
	}
	return &Generator{
		rounds:  rounds,
		metrics: metrics,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Generate emits count records for random starting points of the given
// number of digits. It stops at the first emit error or when ctx is done.
func (g *Generator) Generate(ctx context.Context, digits, count int, emit func(Record) error) error {
	if digits < stream.MinItemSize || digits > stream.MaxItemSize {
		return fmt.Errorf("digits %d out of range", digits)
	}
	for i := 1; i <= count; i++ {
		g.mu.Lock()
		start := randomWithDigits(g.rng, digits)
		g.mu.Unlock()

		began := time.Now()
		p, err := nextPrime(ctx, start, g.rounds)
		if err != nil {
			return err
		}
		elapsed := time.Since(began).Seconds()
		g.metrics.observeItem(elapsed)

		if err := emit(Record{Index: i, Prime: p.String(), Time: elapsed}); err != nil {
			return err
		}
	}
	return nil
}
