package ladder

import (
	"errors"
	"math"
	"testing"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

func TestBuildEqualSizes(t *testing.T) {
	rungs, err := Build(100, 9, 3, 0.03, 1.0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantPrices := []float64{100, 98.5, 97}
	wantSizes := []float64{3, 3, 3}
	for i, r := range rungs {
		if math.Abs(r.Price-wantPrices[i]) > 1e-9 {
			t.Errorf("rung %d price = %v, want %v", i, r.Price, wantPrices[i])
		}
		if math.Abs(r.Size-wantSizes[i]) > 1e-9 {
			t.Errorf("rung %d size = %v, want %v", i, r.Size, wantSizes[i])
		}
	}
}

func TestBuildGeometricTaper(t *testing.T) {
	const total = 7.0
	rungs, err := Build(50, total, 3, 0.005, 0.5)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// a*(1 + 0.5 + 0.25) = 7 => a = 4, sizes 4, 2, 1.
	wantSizes := []float64{4, 2, 1}
	var sum float64
	for i, r := range rungs {
		if math.Abs(r.Size-wantSizes[i]) > 1e-9 {
			t.Errorf("rung %d size = %v, want %v", i, r.Size, wantSizes[i])
		}
		sum += r.Size
	}
	if math.Abs(sum-total) > 1e-9 {
		t.Errorf("sizes sum to %v, want %v", sum, total)
	}
	if rungs[0].Size <= rungs[1].Size || rungs[1].Size <= rungs[2].Size {
		t.Errorf("sizes not tapering: %v", rungs)
	}
}

func TestBuildProperties(t *testing.T) {
	tests := []struct {
		name        string
		bestBid     float64
		totalSize   float64
		numRungs    int
		spreadWidth float64
		taperRatio  float64
	}{
		{"five rungs equal", 1.234, 100, 5, 0.01, 1.0},
		{"two rungs tapered", 0.075, 12.5, 2, 0.002, 0.25},
		{"wide spread", 2000, 3, 4, 0.05, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rungs, err := Build(tt.bestBid, tt.totalSize, tt.numRungs, tt.spreadWidth, tt.taperRatio)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if len(rungs) != tt.numRungs {
				t.Fatalf("got %d rungs, want %d", len(rungs), tt.numRungs)
			}
			if math.Abs(rungs[0].Price-tt.bestBid) > 1e-9 {
				t.Errorf("first rung price = %v, want best bid %v", rungs[0].Price, tt.bestBid)
			}
			worst := tt.bestBid * (1 - tt.spreadWidth)
			if math.Abs(rungs[len(rungs)-1].Price-worst) > 1e-9 {
				t.Errorf("last rung price = %v, want %v", rungs[len(rungs)-1].Price, worst)
			}
			var sum float64
			for i, r := range rungs {
				sum += r.Size
				if i > 0 && r.Price >= rungs[i-1].Price {
					t.Errorf("prices not strictly decreasing at rung %d: %v", i, rungs)
				}
			}
			if math.Abs(sum-tt.totalSize) > 1e-9 {
				t.Errorf("sizes sum to %v, want %v", sum, tt.totalSize)
			}
		})
	}
}

func TestBuildTooFewRungs(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		if _, err := Build(100, 1, n, 0.01, 1.0); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Build with %d rungs: expected ErrInvalidInput, got %v", n, err)
		}
	}
}
