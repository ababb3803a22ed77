package model

import (
	"testing"
	"time"
)

func TestInstrumentCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   Instrument
		want Instrument
	}{
		{
			name: "lowercase stock gets default exchange",
			in:   Instrument{Symbol: "aapl", Kind: KindStock},
			want: Instrument{Symbol: "AAPL", Kind: KindStock, Exchange: "SMART"},
		},
		{
			name: "forex gets IDEALPRO",
			in:   Instrument{Symbol: "eurusd", Kind: KindForex},
			want: Instrument{Symbol: "EURUSD", Kind: KindForex, Exchange: "IDEALPRO"},
		},
		{
			name: "explicit exchange is upcased, not overridden",
			in:   Instrument{Symbol: "aapl", Kind: KindStock, Exchange: "nasdaq"},
			want: Instrument{Symbol: "AAPL", Kind: KindStock, Exchange: "NASDAQ"},
		},
		{
			name: "future has no default exchange",
			in:   Instrument{Symbol: "es", Kind: KindFuture},
			want: Instrument{Symbol: "ES", Kind: KindFuture, Exchange: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Canonicalize()
			if got.Symbol != tt.want.Symbol || got.Exchange != tt.want.Exchange {
				t.Errorf("Canonicalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestInstrumentCanonical(t *testing.T) {
	a := Instrument{Symbol: "aapl", Kind: KindStock}
	b := Instrument{Symbol: "AAPL", Kind: KindStock, Exchange: "SMART"}
	if a.Canonical() != b.Canonical() {
		t.Errorf("expected canonical keys to match: %q vs %q", a.Canonical(), b.Canonical())
	}

	f1 := Instrument{Symbol: "es", Kind: KindFuture, Exchange: "CME", ContractMonth: "202512"}
	f2 := Instrument{Symbol: "es", Kind: KindFuture, Exchange: "CME", ContractMonth: "202603"}
	if f1.Canonical() == f2.Canonical() {
		t.Errorf("different contract months must not collide: %q", f1.Canonical())
	}

	f3 := Instrument{Symbol: "es", Kind: KindFuture, Exchange: "CME", LastTradeDate: "20251219"}
	if f1.Canonical() == f3.Canonical() {
		t.Errorf("contract month and last trade date fallback must not collide when both are set differently")
	}
}

func TestOrderKindRequiresPrice(t *testing.T) {
	cases := map[OrderKind]bool{
		OrderMarket: false,
		OrderLimit:  true,
		OrderStop:   true,
	}
	for k, want := range cases {
		if got := k.RequiresPrice(); got != want {
			t.Errorf("%s.RequiresPrice() = %v, want %v", k, got, want)
		}
	}
}

func TestOrderMergeStatus(t *testing.T) {
	o := &Order{Qty: 100, State: OrderPendingSubmit, RemainingQty: 100}

	o.MergeStatus(OrderSubmitted, 0, 100, 0, 0, time.Now())
	if o.State != OrderSubmitted || o.FilledQty != 0 || o.RemainingQty != 100 {
		t.Fatalf("after Submitted: %+v", o)
	}

	o.MergeStatus(OrderPartiallyFilled, 40, 60, 150.00, 150.00, time.Now())
	if o.FilledQty != 40 || o.RemainingQty != 60 || o.AvgFillPrice != 150.00 {
		t.Fatalf("after partial fill: %+v", o)
	}

	// A stale/duplicate update with a lower filled_qty must not regress it.
	o.MergeStatus(OrderPartiallyFilled, 10, 60, 0, 0, time.Now())
	if o.FilledQty != 40 {
		t.Fatalf("filled_qty regressed: got %d, want 40", o.FilledQty)
	}

	o.MergeStatus(OrderFilled, 100, 0, 150.00, 150.00, time.Now())
	if o.State != OrderFilled || o.FilledQty != 100 || o.RemainingQty != 0 {
		t.Fatalf("after Filled: %+v", o)
	}
	if !o.State.Terminal() {
		t.Fatalf("Filled must be terminal")
	}
}

func TestSubStateTerminal(t *testing.T) {
	if SubActive.Terminal() || SubPending.Terminal() || SubCancelling.Terminal() {
		t.Fatal("non-terminal states reported as terminal")
	}
	if !SubFailed.Terminal() || !SubCancelled.Terminal() {
		t.Fatal("terminal states reported as non-terminal")
	}
}
