// Package producer is a reference upstream for the stream protocol. It
// generates probable primes of a requested size and streams each one with
// the time it took to find.
package producer

import (
	"context"
	"math/big"
	"math/rand"
)

var (
	bigOne = big.NewInt(1)
	bigTwo = big.NewInt(2)
	bigTen = big.NewInt(10)
)

// ctxCheckInterval is how many candidates are tested between context checks.
const ctxCheckInterval = 64

// NextPrime returns the smallest probable prime >= n. rounds is the number
// of Miller-Rabin rounds; a Baillie-PSW test is always applied as well.
func NextPrime(n *big.Int, rounds int) *big.Int {
	p, _ := nextPrime(context.Background(), n, rounds)
	return p
}

func nextPrime(ctx context.Context, n *big.Int, rounds int) (*big.Int, error) {
	if n.Cmp(bigTwo) <= 0 {
		return new(big.Int).Set(bigTwo), nil
	}

	candidate := new(big.Int).Set(n)
	if candidate.Bit(0) == 0 {
		candidate.Add(candidate, bigOne)
	}
	for i := 0; ; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if candidate.ProbablyPrime(rounds) {
			return candidate, nil
		}
		candidate.Add(candidate, bigTwo)
	}
}

// randomWithDigits returns a uniformly random integer with exactly digits
// decimal digits.
func randomWithDigits(rng *rand.Rand, digits int) *big.Int {
	lower := new(big.Int).Exp(bigTen, big.NewInt(int64(digits-1)), nil)
	span := new(big.Int).Mul(lower, big.NewInt(9))
	n := new(big.Int).Rand(rng, span)
	return n.Add(n, lower)
}
