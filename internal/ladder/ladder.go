// Package ladder distributes one target quantity across multiple bid levels.
package ladder

import (
	"fmt"
	"math"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

// Rung is a single (price, size) allocation in a buy ladder.
type Rung struct {
	Price float64
	Size  float64
}

// Build produces numRungs (price, size) pairs under bestBid.
//
// Prices are linearly spaced from bestBid down to bestBid*(1-spreadWidth).
// Sizes are equal when taperRatio == 1, otherwise a geometric sequence with
// common ratio taperRatio whose sum equals totalSize; with taperRatio < 1 the
// first rung carries the largest clip. numRungs must be at least 2 because
// the price spacing divides by numRungs-1.
func Build(bestBid, totalSize float64, numRungs int, spreadWidth, taperRatio float64) ([]Rung, error) {
	if numRungs < 2 {
		return nil, fmt.Errorf("ladder: need at least 2 rungs, got %d: %w", numRungs, domain.ErrInvalidInput)
	}

	rungs := make([]Rung, numRungs)
	for i := range rungs {
		rungs[i].Price = bestBid * (1 - spreadWidth*float64(i)/float64(numRungs-1))
	}

	if taperRatio == 1 {
		size := totalSize / float64(numRungs)
		for i := range rungs {
			rungs[i].Size = size
		}
		return rungs, nil
	}

	// Geometric series: a * (1 - r^n) / (1 - r) = totalSize.
	r := taperRatio
	a := totalSize * (1 - r) / (1 - math.Pow(r, float64(numRungs)))
	for i := range rungs {
		rungs[i].Size = a * math.Pow(r, float64(i))
	}
	return rungs, nil
}
