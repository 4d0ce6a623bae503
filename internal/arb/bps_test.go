package arb

import (
	"errors"
	"math"
	"testing"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

func TestDifferenceInBps(t *testing.T) {
	tests := []struct {
		name       string
		reference  float64
		comparison float64
		want       float64
	}{
		{"positive divergence", 1.00, 1.003, 30},
		{"negative divergence", 1.00, 0.997, -30},
		{"equal prices", 2.5, 2.5, 0},
		{"one percent", 100, 101, 100},
		{"small prices", 0.00002, 0.0000206, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DifferenceInBps(tt.reference, tt.comparison)
			if err != nil {
				t.Fatalf("DifferenceInBps(%v, %v): unexpected error %v", tt.reference, tt.comparison, err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("DifferenceInBps(%v, %v) = %v, want %v", tt.reference, tt.comparison, got, tt.want)
			}
		})
	}
}

func TestDifferenceInBpsZeroReference(t *testing.T) {
	_, err := DifferenceInBps(0, 1.5)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
