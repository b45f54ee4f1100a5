// Package client is the Go consumer of the ledger API: a thin envelope
// client for the HTTP surface plus a websocket subscriber for ledger
// update events.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/peepeespace/easy-ledger/pkg/api"
	"github.com/peepeespace/easy-ledger/pkg/ledger"
)

// Client talks to one ledger on a ledger server.
type Client struct {
	baseURL string
	owner   string
	name    string
	http    *http.Client
}

func New(baseURL, owner, name string) *Client {
	return &Client{
		baseURL: baseURL,
		owner:   owner,
		name:    name,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// do posts one envelope and decodes the result into out (which may be nil
// when the caller discards the result).
func (c *Client) do(ctx context.Context, opType string, params, out any) error {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	body, err := json.Marshal(api.Envelope{Type: opType, Params: rawParams})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/ledgers/%s/%s", c.baseURL, c.owner, c.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Status string          `json:"status"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Status != api.StatusSuccess {
		var msg string
		_ = json.Unmarshal(envelope.Result, &msg)
		return fmt.Errorf("%s failed: %s", opType, msg)
	}
	if out != nil && len(envelope.Result) > 0 && string(envelope.Result) != "null" {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// Ping checks that the server is answering for this ledger.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", struct{}{}, nil)
}

// InitOrder records an order request and returns its fingerprint.
func (c *Client) InitOrder(ctx context.Context, strategyName, symbol string, price, quantity float64, side ledger.Side, orderType ledger.OrderType, quote, meta string) (string, error) {
	var res api.InitOrderResult
	err := c.do(ctx, "init_order", api.InitOrderParams{
		StrategyName: strategyName,
		Symbol:       symbol,
		Price:        price,
		Quantity:     quantity,
		Side:         string(side),
		OrderType:    string(orderType),
		Quote:        quote,
		Meta:         meta,
	}, &res)
	return res.OrderHash, err
}

// RegisterOrder matches an exchange acknowledgement to a pending order.
func (c *Client) RegisterOrder(ctx context.Context, orderNumber, orderHash string) (string, bool, error) {
	var res api.RegisterOrderResult
	err := c.do(ctx, "register_order", api.RegisterOrderParams{
		OrderNumber: orderNumber,
		OrderHash:   orderHash,
	}, &res)
	return res.StrategyName, res.Registered, err
}

// FillOrder applies a fill; the returned order is nil when the fill was
// silently ignored.
func (c *Client) FillOrder(ctx context.Context, strategyName, orderNumber string, price, quantity float64, positionAmount *float64) (*ledger.Order, error) {
	var order *ledger.Order
	err := c.do(ctx, "fill_order", api.FillOrderParams{
		StrategyName:   strategyName,
		OrderNumber:    orderNumber,
		Price:          price,
		Quantity:       quantity,
		PositionAmount: positionAmount,
	}, &order)
	return order, err
}

// CancelOrder cancels matching open orders; n is how many were cancelled.
func (c *Client) CancelOrder(ctx context.Context, strategyName, orderNumber string) (int, error) {
	var res api.CancelOrderResult
	err := c.do(ctx, "cancel_order", api.CancelOrderParams{
		StrategyName: strategyName,
		OrderNumber:  orderNumber,
	}, &res)
	return res.Cancelled, err
}

// UpdateCash sets the strategy's balance for a quote and returns the full
// balance map.
func (c *Client) UpdateCash(ctx context.Context, strategyName string, amount float64, quote string) (map[string]float64, error) {
	var res map[string]float64
	err := c.do(ctx, "update_cash", api.UpdateCashParams{
		StrategyName: strategyName,
		Amount:       amount,
		Quote:        quote,
	}, &res)
	return res, err
}

// GetCash reads the strategy's balance in one quote.
func (c *Client) GetCash(ctx context.Context, strategyName, quote string) (float64, error) {
	var res float64
	err := c.do(ctx, "get_cash", api.GetCashParams{
		StrategyName: strategyName,
		Quote:        quote,
	}, &res)
	return res, err
}

// GetOrders reads the strategy's orders in the given states.
func (c *Client) GetOrders(ctx context.Context, strategyName string, states []ledger.OrderState) ([]*ledger.Order, error) {
	ss := make([]string, len(states))
	for i, st := range states {
		ss[i] = string(st)
	}
	var res []*ledger.Order
	err := c.do(ctx, "get_orders", api.GetOrdersParams{
		StrategyName: strategyName,
		States:       ss,
	}, &res)
	return res, err
}

// GetOrder reads one order by exchange order number; nil when absent.
func (c *Client) GetOrder(ctx context.Context, strategyName, orderNumber string) (*ledger.Order, error) {
	var res *ledger.Order
	err := c.do(ctx, "get_order", api.GetOrderParams{
		StrategyName: strategyName,
		OrderNumber:  orderNumber,
	}, &res)
	return res, err
}

// CleanOrders evicts orders in the given state.
func (c *Client) CleanOrders(ctx context.Context, state ledger.OrderState, strategyName string) error {
	return c.do(ctx, "clean_orders", api.CleanOrdersParams{
		State:        string(state),
		StrategyName: strategyName,
	}, nil)
}

// GetPositions reads the strategy's symbol -> position map.
func (c *Client) GetPositions(ctx context.Context, strategyName string) (map[string]*ledger.Position, error) {
	var res map[string]*ledger.Position
	err := c.do(ctx, "get_positions", api.GetPositionsParams{StrategyName: strategyName}, &res)
	return res, err
}

// GetPosition reads the strategy's position in one symbol.
func (c *Client) GetPosition(ctx context.Context, strategyName, symbol string) (*ledger.Position, error) {
	var res *ledger.Position
	err := c.do(ctx, "get_position", api.GetPositionParams{
		StrategyName: strategyName,
		Symbol:       symbol,
	}, &res)
	return res, err
}

// UpdatePosition applies a position leg directly.
func (c *Client) UpdatePosition(ctx context.Context, strategyName, symbol string, side ledger.Side, price, quantity float64, positionAmount *float64, orderState ledger.OrderState) (*ledger.Position, error) {
	var res *ledger.Position
	err := c.do(ctx, "update_position", api.UpdatePositionParams{
		StrategyName:   strategyName,
		Symbol:         symbol,
		Side:           string(side),
		Price:          price,
		Quantity:       quantity,
		PositionAmount: positionAmount,
		OrderState:     string(orderState),
	}, &res)
	return res, err
}
