package hub

import (
	"strings"

	"github.com/marketbridge/gateway/internal/model"
)

// dispatch interprets one parsed Command and calls into C6/C7. Protocol
// errors (bad JSON shape, unknown command, invalid enum) get an immediate
// error{bad_request} reply; the connection stays open.
func (h *Hub) dispatch(c *clientConn, cmd Command) {
	switch cmd.Command {
	case CmdSubscribeMarketData:
		h.dispatchSubscribe(c, cmd, model.StreamLevel1)
	case CmdSubscribeTimeAndSales:
		h.dispatchSubscribe(c, cmd, model.StreamTrades)
	case CmdSubscribeBidAsk:
		h.dispatchSubscribe(c, cmd, model.StreamQuotes)
	case CmdUnsubscribeMarketData:
		if cmd.Symbol == "" {
			h.badRequest(c, "symbol is required")
			return
		}
		h.subs.UnsubscribeSymbol(c.id, cmd.Symbol)
	case CmdPlaceOrder:
		h.dispatchPlaceOrder(c, cmd)
	case CmdCancelOrder:
		if cmd.OrderID == 0 {
			h.badRequest(c, "order_id is required")
			return
		}
		if err := h.orders.CancelOrder(c.id, cmd.OrderID); err != nil {
			h.sendCodedError(c, err, 0, cmd.OrderID)
		}
	case CmdGetContractDetails:
		instr, ok := h.parseInstrument(c, cmd)
		if !ok {
			return
		}
		if _, err := h.subs.RequestContractDetails(c.id, instr); err != nil {
			h.sendCodedError(c, err, 0, 0)
		}
	default:
		h.badRequest(c, "unknown command: "+cmd.Command)
	}
}

func (h *Hub) dispatchSubscribe(c *clientConn, cmd Command, kind model.StreamKind) {
	instr, ok := h.parseInstrument(c, cmd)
	if !ok {
		return
	}
	if _, err := h.subs.Subscribe(c.id, instr, kind); err != nil {
		h.sendCodedError(c, err, 0, 0)
	}
}

func (h *Hub) dispatchPlaceOrder(c *clientConn, cmd Command) {
	instr, ok := h.parseInstrument(c, cmd)
	if !ok {
		return
	}

	var side model.OrderSide
	switch strings.ToUpper(cmd.Action) {
	case "BUY":
		side = model.Buy
	case "SELL":
		side = model.Sell
	default:
		h.badRequest(c, "action must be BUY or SELL")
		return
	}

	var kind model.OrderKind
	switch strings.ToUpper(cmd.OrderType) {
	case "MKT":
		kind = model.OrderMarket
	case "LMT":
		kind = model.OrderLimit
	case "STP":
		kind = model.OrderStop
	default:
		h.badRequest(c, "order_type must be MKT, LMT, or STP")
		return
	}

	if cmd.Quantity <= 0 {
		h.badRequest(c, "quantity must be > 0")
		return
	}
	if kind.RequiresPrice() && cmd.Price <= 0 {
		h.badRequest(c, "price is required and must be > 0 for LMT/STP orders")
		return
	}

	if _, err := h.orders.PlaceOrder(c.id, instr, side, cmd.Quantity, kind, cmd.Price); err != nil {
		h.sendCodedError(c, err, 0, 0)
	}
}

func (h *Hub) parseInstrument(c *clientConn, cmd Command) (model.Instrument, bool) {
	if cmd.Symbol == "" {
		h.badRequest(c, "symbol is required")
		return model.Instrument{}, false
	}
	kind := model.InstrumentKind(strings.ToLower(cmd.InstrumentType))
	switch kind {
	case model.KindStock, model.KindOption, model.KindFuture, model.KindForex, model.KindIndex, model.KindCrypto:
	default:
		h.badRequest(c, "instrument_type is invalid")
		return model.Instrument{}, false
	}

	instr := model.Instrument{
		Symbol:        cmd.Symbol,
		Kind:          kind,
		Exchange:      cmd.Exchange,
		Currency:      cmd.Currency,
		ContractMonth: cmd.ContractMonth,
		LastTradeDate: cmd.LastTradeDate,
	}.Canonicalize()
	return instr, true
}

func (h *Hub) badRequest(c *clientConn, msg string) {
	c.push(Message{Type: MsgError, Error: &ErrorMsg{
		Severity:    SeverityError,
		ErrorCode:   ErrCodeBadRequest,
		ErrorString: msg,
	}})
}

func (h *Hub) sendCodedError(c *clientConn, err error, reqID, orderID int64) {
	code := ErrCodeBadRequest
	if ce, ok := err.(CodedError); ok {
		code = ce.Code()
	}
	c.push(Message{Type: MsgError, Error: &ErrorMsg{
		Severity:    SeverityError,
		ErrorCode:   code,
		ErrorString: err.Error(),
		ReqID:       reqID,
		OrderID:     orderID,
	}})
}
