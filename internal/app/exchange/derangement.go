/*
Package exchange contains the core logic of the gift-assignment exchange.

This file implements the derangement generator: a random bijection over the
participant set with no fixed points, so nobody draws themselves.
*/
package exchange

import (
	"errors"
	"fmt"
	"math/rand"
)

// MaxDerangementAttempts bounds the shuffle-and-reject loop. For any set of
// two or more identities the per-draw success probability is at least 1/e, so
// the cap is effectively unreachable with a healthy randomness source.
const MaxDerangementAttempts = 100

// ErrDerangementExhausted is returned when no valid derangement was found
// within the attempt cap. Callers must treat it as fatal.
var ErrDerangementExhausted = errors.New("no valid derangement found within attempt cap")

// GenerateDerangement draws a random giver-to-receiver mapping over the given
// identities: a bijection with zero fixed points. A whole permutation is drawn
// and rejected if any position maps to itself.
//
// Sets smaller than two have no derangement and are rejected structurally
// before a room ever calls this; the guard here is an error, not retry
// exhaustion.
func GenerateDerangement(identities []string, rng *rand.Rand) (map[string]string, error) {
	if len(identities) < 2 {
		return nil, fmt.Errorf("derangement requires at least two identities, got %d", len(identities))
	}

	for attempt := 0; attempt < MaxDerangementAttempts; attempt++ {
		perm := rng.Perm(len(identities))

		valid := true
		for i, j := range perm {
			if i == j {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}

		assignment := make(map[string]string, len(identities))
		for i, j := range perm {
			assignment[identities[i]] = identities[j]
		}
		return assignment, nil
	}

	return nil, ErrDerangementExhausted
}
