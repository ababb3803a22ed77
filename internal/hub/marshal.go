package hub

import "encoding/json"

// MarshalJSON flattens the Message sum type into the wire envelope
// {"type": ..., <payload fields>...} rather than nesting the payload
// under a named field.
func (m Message) MarshalJSON() ([]byte, error) {
	var payload any
	switch m.Type {
	case MsgConnectionStatus:
		payload = m.ConnectionStatus
	case MsgMarketData:
		payload = m.MarketData
	case MsgTimeAndSales:
		payload = m.TimeAndSales
	case MsgBidAskTick:
		payload = m.BidAskTick
	case MsgOrderStatus:
		payload = m.OrderStatus
	case MsgContractDetails:
		payload = m.ContractDetails
	case MsgContractDetailsEnd:
		payload = m.ContractDetailsEnd
	case MsgError:
		payload = m.Error
	}

	out := map[string]any{"type": m.Type}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		for k, v := range fields {
			out[k] = v
		}
	}
	return json.Marshal(out)
}
