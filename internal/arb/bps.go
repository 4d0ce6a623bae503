// Package arb computes the cross-venue price-divergence signal.
package arb

import (
	"fmt"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

// DifferenceInBps returns the signed relative difference between a reference
// price and a comparison price in basis points:
//
//	(comparison - reference) / reference * 10_000
//
// A zero reference price is invalid input.
func DifferenceInBps(reference, comparison float64) (float64, error) {
	if reference == 0 {
		return 0, fmt.Errorf("arb: reference price is zero: %w", domain.ErrInvalidInput)
	}
	return (comparison - reference) / reference * 10_000, nil
}
