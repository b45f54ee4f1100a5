package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/peepeespace/easy-ledger/pkg/ledger"
)

// KeyLister enumerates persisted snapshot keys; the Pebble store
// implements it. Nil when persistence is off.
type KeyLister interface {
	ListKeys(prefix string) ([]string, error)
}

// Server exposes the ledger manager over HTTP. All operations against one
// ledger go through a single envelope endpoint; reads and writes alike are
// serialized by the manager, and every mutation is pushed to websocket
// subscribers of that ledger's channel.
type Server struct {
	manager *ledger.Manager
	lister  KeyLister
	router  *mux.Router
	hub     *Hub
	log     *zap.SugaredLogger

	corsOrigins []string
}

type Options struct {
	CORSOrigins  []string
	WriteTimeout time.Duration
	// Lister backs the ledger listing endpoint; nil disables it.
	Lister KeyLister
}

func NewServer(manager *ledger.Manager, log *zap.SugaredLogger, opts Options) *Server {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s := &Server{
		manager:     manager,
		lister:      opts.Lister,
		router:      mux.NewRouter(),
		hub:         NewHub(log, opts.WriteTimeout),
		log:         log,
		corsOrigins: origins,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/ledgers", s.handleListLedgers).Methods("GET")
	api.HandleFunc("/ledgers/{owner}/{name}", s.handleEnvelope).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the fully wrapped HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

func (s *Server) Start(addr string) error {
	s.log.Infow("api server starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, Response{Status: StatusSuccess, Result: "ok"})
}

// handleListLedgers reports every (owner, name) with a persisted cash
// snapshot. Without a persistent store the listing is unavailable.
func (s *Server) handleListLedgers(w http.ResponseWriter, r *http.Request) {
	if s.lister == nil {
		respondError(w, http.StatusNotImplemented, "persistence disabled")
		return
	}
	keys, err := s.lister.ListKeys(ledger.KeyPrefixCash)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	names := make([]LedgerName, 0, len(keys))
	for _, key := range keys {
		owner, name, ok := ledger.SplitCashKey(key)
		if !ok {
			continue
		}
		names = append(names, LedgerName{Owner: owner, Name: name})
	}
	respondJSON(w, http.StatusOK, Response{Status: StatusSuccess, Result: names})
}

// handleEnvelope decodes {"type", "params"} and dispatches against the
// (owner, name) ledger under its lock.
func (s *Server) handleEnvelope(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, name := vars["owner"], vars["name"]

	var env Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if env.Type == "" {
		respondError(w, http.StatusBadRequest, "missing request type")
		return
	}

	if env.Type == "ping" {
		respondJSON(w, http.StatusOK, Response{Status: StatusSuccess, Result: "pong"})
		return
	}

	var result any
	mutated := false
	err := s.manager.Do(owner, name, func(l *ledger.Ledger) error {
		var opErr error
		result, mutated, opErr = s.dispatch(l, env)
		return opErr
	})
	if err != nil {
		status := http.StatusInternalServerError
		if _, ok := err.(*paramError); ok {
			status = http.StatusBadRequest
		}
		s.log.Warnw("ledger op failed", "owner", owner, "name", name, "type", env.Type, "err", err)
		respondError(w, status, err.Error())
		return
	}

	if mutated {
		s.hub.BroadcastToChannel(ledgerChannel(owner, name), LedgerEvent{
			Type:      "ledger_update",
			Owner:     owner,
			Name:      name,
			Op:        env.Type,
			Timestamp: time.Now().UnixMilli(),
		})
	}

	respondJSON(w, http.StatusOK, Response{Status: StatusSuccess, Result: result})
}

// dispatch runs one operation against an already-locked ledger and reports
// whether it mutated state.
func (s *Server) dispatch(l *ledger.Ledger, env Envelope) (any, bool, error) {
	switch env.Type {
	case "order_hash":
		var p OrderHashParams
		if err := decodeParams(env.Params, &p); err != nil {
			return nil, false, err
		}
		hash := l.OrderHash(p.Symbol, p.Price, p.Quantity, ledger.Side(p.Side), ledger.OrderType(p.OrderType), p.Quote, p.Meta)
		return InitOrderResult{OrderHash: hash}, false, nil

	case "init_order":
		var p InitOrderParams
		if err := decodeParams(env.Params, &p); err != nil {
			return nil, false, err
		}
		if err := validSide(p.Side); err != nil {
			return nil, false, err
		}
		hash, err := l.InitOrder(p.StrategyName, p.Symbol, p.Price, p.Quantity, ledger.Side(p.Side), ledger.OrderType(p.OrderType), p.Quote, p.Meta)
		if err != nil {
			return nil, false, err
		}
		return InitOrderResult{OrderHash: hash}, true, nil

	case "register_order":
		var p RegisterOrderParams
		if err := decodeParams(env.Params, &p); err != nil {
			return nil, false, err
		}
		strategy, ok, err := l.RegisterOrder(p.OrderNumber, p.OrderHash)
		if err != nil {
			return nil, false, err
		}
		return RegisterOrderResult{StrategyName: strategy, Registered: ok}, ok, nil

	case "fill_order":
		var p FillOrderParams
		if err := decodeParams(env.Params, &p); err != nil {
			return nil, false, err
		}
		order, err := l.FillOrder(p.StrategyName, p.OrderNumber, p.Price, p.Quantity, p.PositionAmount)
		if err != nil {
			return nil, false, err
		}
		return order, order != nil, nil

	case "cancel_order":
		var p CancelOrderParams
		if err := decodeParams(env.Params, &p); err != nil {
			return nil, false, err
		}
		n, err := l.CancelOrder(p.StrategyName, p.OrderNumber)
		if err != nil {
			return nil, false, err
		}
		return CancelOrderResult{Cancelled: n}, n > 0, nil

	case "update_cash":
		var p UpdateCashParams
		if err := decodeParams(env.Params, &p); err != nil {
			return nil, false, err
		}
		if err := l.UpdateCash(p.StrategyName, p.Amount, p.Quote); err != nil {
			return nil, false, err
		}
		return l.GetCashAll(p.StrategyName), true, nil

	case "get_cash":
		var p GetCashParams
		if err := decodeParams(env.Params, &p); err != nil {
			return nil, false, err
		}
		if p.Quote == "" {
			return l.GetCashAll(p.StrategyName), false, nil
		}
		return l.GetCash(p.StrategyName, p.Quote), false, nil

	case "get_orders":
		var p GetOrdersParams
		if err := decodeParams(env.Params, &p); err != nil {
			return nil, false, err
		}
		states := make([]ledger.OrderState, len(p.States))
		for i, st := range p.States {
			states[i] = ledger.OrderState(st)
		}
		return l.GetOrders(p.StrategyName, states), false, nil

	case "get_order":
		var p GetOrderParams
		if err := decodeParams(env.Params, &p); err != nil {
			return nil, false, err
		}
		order, ok := l.GetOrder(p.StrategyName, p.OrderNumber)
		if !ok {
			return nil, false, nil
		}
		return order, false, nil

	case "clean_orders":
		var p CleanOrdersParams
		if err := decodeParams(env.Params, &p); err != nil {
			return nil, false, err
		}
		if err := l.CleanOrders(ledger.OrderState(p.State), p.StrategyName); err != nil {
			return nil, false, err
		}
		return nil, true, nil

	case "get_positions":
		var p GetPositionsParams
		if err := decodeParams(env.Params, &p); err != nil {
			return nil, false, err
		}
		return l.GetPositions(p.StrategyName), false, nil

	case "get_position":
		var p GetPositionParams
		if err := decodeParams(env.Params, &p); err != nil {
			return nil, false, err
		}
		return l.GetPosition(p.StrategyName, p.Symbol), false, nil

	case "update_position":
		var p UpdatePositionParams
		if err := decodeParams(env.Params, &p); err != nil {
			return nil, false, err
		}
		if err := validSide(p.Side); err != nil {
			return nil, false, err
		}
		err := l.UpdatePosition(p.StrategyName, p.Symbol, ledger.Side(p.Side), p.Price, p.Quantity, p.PositionAmount, ledger.OrderState(p.OrderState))
		if err != nil {
			return nil, false, err
		}
		return l.GetPosition(p.StrategyName, p.Symbol), true, nil

	default:
		return nil, false, &paramError{msg: fmt.Sprintf("unknown request type: %s", env.Type)}
	}
}

// paramError marks client mistakes so the handler can answer 400 instead
// of 500.
type paramError struct {
	msg string
}

func (e *paramError) Error() string { return e.msg }

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return &paramError{msg: "missing params"}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &paramError{msg: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}

func validSide(side string) error {
	switch ledger.Side(side) {
	case ledger.SideBuy, ledger.SideSell:
		return nil
	}
	return &paramError{msg: fmt.Sprintf("invalid side: %q", side)}
}

func ledgerChannel(owner, name string) string {
	return fmt.Sprintf("ledger:%s:%s", owner, name)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Response{Status: StatusError, Result: message})
}
