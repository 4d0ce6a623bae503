package domain

import "testing"

func TestQuoteCrossed(t *testing.T) {
	cases := []struct {
		name     string
		bid, ask float64
		want     bool
	}{
		{"normal book", 0.99, 1.01, false},
		{"locked book", 1.00, 1.00, false},
		{"crossed book", 1.02, 1.01, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := Quote{BestBidPrice: tc.bid, BestAskPrice: tc.ask}
			if got := q.Crossed(); got != tc.want {
				t.Errorf("Crossed() = %v for bid %v ask %v", got, tc.bid, tc.ask)
			}
		})
	}
}
