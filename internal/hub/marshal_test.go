package hub

import (
	"encoding/json"
	"testing"
)

func TestMarketDataMessageMarshalsFlat(t *testing.T) {
	msg := Message{
		Type: MsgMarketData,
		MarketData: &MarketDataMsg{
			Symbol: "AAPL", ReqID: 1, DataType: "price", TickType: "last",
			Price: 150.25, Timestamp: 1700000000.5,
		},
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got["type"] != "market_data" {
		t.Fatalf("type = %v", got["type"])
	}
	if got["symbol"] != "AAPL" {
		t.Fatalf("symbol = %v", got["symbol"])
	}
	if got["price"] != 150.25 {
		t.Fatalf("price = %v", got["price"])
	}
	if _, ok := got["market_data"]; ok {
		t.Fatal("payload must be flattened, not nested under its field name")
	}
}

func TestOrderStatusMessageMarshalsFlat(t *testing.T) {
	msg := Message{
		Type: MsgOrderStatus,
		OrderStatus: &OrderStatusMsg{
			OrderID: 1001, Status: "Filled", Filled: 100, Remaining: 0, AvgFillPrice: 150.0,
		},
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got map[string]any
	_ = json.Unmarshal(raw, &got)
	if got["status"] != "Filled" {
		t.Fatalf("status = %v", got["status"])
	}
	if got["order_id"] != float64(1001) {
		t.Fatalf("order_id = %v", got["order_id"])
	}
}

func TestIsCritical(t *testing.T) {
	critical := []string{MsgOrderStatus, MsgConnectionStatus, MsgError}
	for _, typ := range critical {
		if !IsCritical(typ) {
			t.Errorf("IsCritical(%q) = false, want true", typ)
		}
	}
	noncritical := []string{MsgMarketData, MsgTimeAndSales, MsgBidAskTick, MsgContractDetails, MsgContractDetailsEnd}
	for _, typ := range noncritical {
		if IsCritical(typ) {
			t.Errorf("IsCritical(%q) = true, want false", typ)
		}
	}
}
