package hub

import "testing"

func TestQueueDropsOldestNonCriticalWhenFull(t *testing.T) {
	q := newOutboundQueue(2)
	q.Push(Message{Type: MsgMarketData, MarketData: &MarketDataMsg{Symbol: "A"}})
	q.Push(Message{Type: MsgMarketData, MarketData: &MarketDataMsg{Symbol: "B"}})
	// Queue full of non-critical; pushing a third non-critical evicts the oldest (A).
	q.Push(Message{Type: MsgMarketData, MarketData: &MarketDataMsg{Symbol: "C"}})

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
	first, _ := q.Pop()
	if first.MarketData.Symbol != "B" {
		t.Fatalf("first popped = %+v, want B", first)
	}
}

func TestQueueEvictsNonCriticalForCritical(t *testing.T) {
	q := newOutboundQueue(2)
	q.Push(Message{Type: MsgMarketData, MarketData: &MarketDataMsg{Symbol: "A"}})
	q.Push(Message{Type: MsgMarketData, MarketData: &MarketDataMsg{Symbol: "B"}})

	ok := q.Push(Message{Type: MsgOrderStatus, OrderStatus: &OrderStatusMsg{OrderID: 1}})
	if !ok {
		t.Fatal("expected critical push to succeed by evicting a non-critical message")
	}
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}

	first, _ := q.Pop()
	if first.MarketData == nil || first.MarketData.Symbol != "B" {
		t.Fatalf("expected oldest (A) evicted and B to remain first, got %+v", first)
	}
	second, _ := q.Pop()
	if second.Type != MsgOrderStatus {
		t.Fatalf("expected order_status to be queued, got %+v", second)
	}
}

func TestQueueFullOfCriticalOverflows(t *testing.T) {
	q := newOutboundQueue(1)
	ok := q.Push(Message{Type: MsgOrderStatus, OrderStatus: &OrderStatusMsg{OrderID: 1}})
	if !ok {
		t.Fatal("first critical push should succeed")
	}
	ok = q.Push(Message{Type: MsgError, Error: &ErrorMsg{ErrorCode: "x"}})
	if ok {
		t.Fatal("expected overflow: no non-critical victim to evict, queue full of critical messages")
	}
}

func TestQueuePopOrderPreserved(t *testing.T) {
	q := newOutboundQueue(4)
	for _, s := range []string{"A", "B", "C"} {
		q.Push(Message{Type: MsgMarketData, MarketData: &MarketDataMsg{Symbol: s}})
	}
	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.Pop()
		if !ok || got.MarketData.Symbol != want {
			t.Fatalf("Pop() = %+v, want %s", got, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("expected empty queue")
	}
}
