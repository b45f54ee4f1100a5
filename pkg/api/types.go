package api

import "encoding/json"

// Request envelope and per-operation parameter shapes. Every ledger
// mutation and query travels as {"type": ..., "params": {...}} against
// a single ledger-scoped endpoint; responses are {"status", "result"}.

// Envelope is the request wrapper for all ledger operations.
type Envelope struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

// Response is the uniform reply wrapper.
type Response struct {
	Status string `json:"status"`
	Result any    `json:"result"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ==============================
// Operation Parameters
// ==============================

type OrderHashParams struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Quantity  float64 `json:"quantity"`
	Side      string  `json:"side"`
	OrderType string  `json:"order_type"`
	Quote     string  `json:"quote"`
	Meta      string  `json:"meta"`
}

type InitOrderParams struct {
	StrategyName string  `json:"strategy_name"`
	Symbol       string  `json:"symbol"`
	Price        float64 `json:"price"`
	Quantity     float64 `json:"quantity"`
	Side         string  `json:"side"`
	OrderType    string  `json:"order_type"`
	Quote        string  `json:"quote"`
	Meta         string  `json:"meta"`
}

type RegisterOrderParams struct {
	OrderNumber string `json:"order_number"`
	OrderHash   string `json:"order_hash"`
}

type FillOrderParams struct {
	StrategyName   string   `json:"strategy_name"`
	OrderNumber    string   `json:"order_number"`
	Price          float64  `json:"price"`
	Quantity       float64  `json:"quantity"`
	PositionAmount *float64 `json:"position_amount"`
}

type CancelOrderParams struct {
	StrategyName string `json:"strategy_name"`
	OrderNumber  string `json:"order_number"`
}

type UpdateCashParams struct {
	StrategyName string  `json:"strategy_name"`
	Amount       float64 `json:"amount"`
	Quote        string  `json:"quote"`
}

type GetCashParams struct {
	StrategyName string `json:"strategy_name"`
	Quote        string `json:"quote"`
}

type GetOrdersParams struct {
	StrategyName string   `json:"strategy_name"`
	States       []string `json:"states"`
}

type GetOrderParams struct {
	StrategyName string `json:"strategy_name"`
	OrderNumber  string `json:"order_number"`
}

type CleanOrdersParams struct {
	State        string `json:"state"`
	StrategyName string `json:"strategy_name"`
}

type GetPositionsParams struct {
	StrategyName string `json:"strategy_name"`
}

type GetPositionParams struct {
	StrategyName string `json:"strategy_name"`
	Symbol       string `json:"symbol"`
}

type UpdatePositionParams struct {
	StrategyName   string   `json:"strategy_name"`
	Symbol         string   `json:"symbol"`
	Side           string   `json:"side"`
	Price          float64  `json:"price"`
	Quantity       float64  `json:"quantity"`
	PositionAmount *float64 `json:"position_amount"`
	OrderState     string   `json:"order_state"`
}

// ==============================
// Operation Results
// ==============================

type InitOrderResult struct {
	OrderHash string `json:"order_hash"`
}

type RegisterOrderResult struct {
	StrategyName string `json:"strategy_name"`
	Registered   bool   `json:"registered"`
}

type CancelOrderResult struct {
	Cancelled int `json:"cancelled"`
}

type LedgerName struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// ==============================
// WebSocket Messages
// ==============================

// LedgerEvent is pushed to subscribers of "ledger:{owner}:{name}" after
// every mutating operation.
type LedgerEvent struct {
	Type      string `json:"type"`
	Owner     string `json:"owner"`
	Name      string `json:"name"`
	Op        string `json:"op"`
	Timestamp int64  `json:"timestamp"`
}

// WSSubscribeRequest asks the hub to add or drop channel subscriptions.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}
