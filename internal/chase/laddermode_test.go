package chase

import (
	"context"
	"math"
	"testing"
)

func newTestPlacer(client *fakeClient) (*LadderPlacer, *fakeSource, *fakeSource) {
	ref := &fakeSource{venue: "coinex"}
	cmp := &fakeSource{venue: "mexc"}
	p := NewLadderPlacer(LadderConfig{
		Market:      "XEC-USDT",
		NotionalUSD: 900,
		MinEdgeBps:  20,
		NumRungs:    3,
		SpreadWidth: 0.03,
		TaperRatio:  1.0,
	}, ref, cmp, client, testLogger)
	return p, ref, cmp
}

func TestCycleAwaitsQuotes(t *testing.T) {
	client := &fakeClient{}
	p, ref, _ := newTestPlacer(client)

	if p.cycle(context.Background()) {
		t.Fatal("cycle placed with no quotes")
	}
	ref.setBid(100)
	if p.cycle(context.Background()) {
		t.Fatal("cycle placed with only the reference quote")
	}
	if len(client.placed) != 0 {
		t.Errorf("placed %d orders", len(client.placed))
	}
}

func TestCycleAnchorsAtBidAboveThreshold(t *testing.T) {
	client := &fakeClient{}
	p, ref, cmp := newTestPlacer(client)

	ref.setBid(100)
	cmp.setBid(100.3) // 30 bps

	if !p.cycle(context.Background()) {
		t.Fatal("cycle placed nothing")
	}
	if len(client.placed) != 3 {
		t.Fatalf("placed %d rungs, want 3", len(client.placed))
	}

	if top := client.placed[0].price; top != 100 {
		t.Errorf("top rung at %v, want the reference bid", top)
	}
	var total float64
	for _, rung := range client.placed {
		total += rung.amount
	}
	if want := 900.0 / 100; math.Abs(total-want) > 1e-9 {
		t.Errorf("rung sizes sum to %v, want %v", total, want)
	}
}

func TestCycleAnchorsBelowBidUnderThreshold(t *testing.T) {
	client := &fakeClient{}
	p, ref, cmp := newTestPlacer(client)

	ref.setBid(100)
	cmp.setBid(100.1) // 10 bps, under the 20 bps threshold

	if !p.cycle(context.Background()) {
		t.Fatal("cycle placed nothing")
	}

	// Anchor drops to where the edge would clear the threshold.
	want := 100 * (1 - 20.0/10_000)
	if top := client.placed[0].price; math.Abs(top-want) > 1e-9 {
		t.Errorf("top rung at %v, want %v", top, want)
	}
}

func TestCycleSkipsFailedRungs(t *testing.T) {
	client := &fakeClient{failVisible: true}
	p, ref, cmp := newTestPlacer(client)

	ref.setBid(100)
	cmp.setBid(100.3)

	if p.cycle(context.Background()) {
		t.Fatal("cycle reported placements despite rejections")
	}
	if len(client.placed) != 0 {
		t.Errorf("placed %d orders", len(client.placed))
	}
}
