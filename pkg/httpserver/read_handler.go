package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/timeflowlabs/timeflow/internal/factory"
	"github.com/timeflowlabs/timeflow/internal/registry"
	"github.com/timeflowlabs/timeflow/internal/vault"
	"github.com/timeflowlabs/timeflow/pkg/cache"
	"github.com/timeflowlabs/timeflow/pkg/types"
	"go.uber.org/zap"
)

// readHandler serves the read-only query endpoints. Market configs and
// collateral info pass through a short-TTL cache; order lookups always hit
// the engine since their state moves with every match.
type readHandler struct {
	registry *registry.Registry
	factory  *factory.Factory
	vault    *vault.Vault
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func newReadHandler(cfg *Config) *readHandler {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &readHandler{
		registry: cfg.Registry,
		factory:  cfg.Factory,
		vault:    cfg.Vault,
		cache:    cfg.Cache,
		cacheTTL: ttl,
		logger:   cfg.Logger,
	}
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MarketIDResponse carries the factory's current market id counter.
type MarketIDResponse struct {
	MarketID uint64 `json:"market_id"`
}

// OrderStateResponse carries just an order's lifecycle state.
type OrderStateResponse struct {
	MarketID uint64 `json:"market_id"`
	OrderID  uint64 `json:"order_id"`
	State    string `json:"state"`
}

// HandleMarketID handles GET /api/markets/current-id.
func (h *readHandler) HandleMarketID(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, MarketIDResponse{MarketID: h.factory.MarketID()})
}

// HandleMarketInfo handles GET /api/markets/{marketID}.
func (h *readHandler) HandleMarketInfo(w http.ResponseWriter, r *http.Request) {
	marketID, ok := h.marketIDParam(w, r)
	if !ok {
		return
	}

	_, info, err := h.factory.GetMarketInfo(marketID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// HandleMarketConfig handles GET /api/markets/{marketID}/config.
func (h *readHandler) HandleMarketConfig(w http.ResponseWriter, r *http.Request) {
	marketID, ok := h.marketIDParam(w, r)
	if !ok {
		return
	}

	key := cache.MarketConfigKey(marketID)
	if h.cache != nil {
		if cached, found := h.cache.Get(key); found {
			if cfg, ok := cached.(types.MarketConfig); ok {
				h.writeJSON(w, http.StatusOK, cfg)
				return
			}
		}
	}

	cfg := h.registry.GetMarketConfig(marketID)
	if h.cache != nil {
		h.cache.Set(key, cfg, h.cacheTTL)
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// HandleOrders handles GET /api/markets/{marketID}/orders.
func (h *readHandler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engineParam(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, engine.Orders())
}

// HandleOrderInfo handles GET /api/markets/{marketID}/orders/{orderID}.
func (h *readHandler) HandleOrderInfo(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engineParam(w, r)
	if !ok {
		return
	}
	orderID, ok := h.orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := engine.GetOrderInfo(orderID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// HandleOrderState handles GET /api/markets/{marketID}/orders/{orderID}/state.
func (h *readHandler) HandleOrderState(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engineParam(w, r)
	if !ok {
		return
	}
	orderID, ok := h.orderIDParam(w, r)
	if !ok {
		return
	}

	state, err := engine.GetOrderState(orderID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, OrderStateResponse{
		MarketID: engine.MarketID(),
		OrderID:  orderID,
		State:    state.String(),
	})
}

// HandleCollateralInfo handles GET /api/collateral/{token}.
func (h *readHandler) HandleCollateralInfo(w http.ResponseWriter, r *http.Request) {
	tokenHex := chi.URLParam(r, "token")
	if !common.IsHexAddress(tokenHex) {
		h.writeError(w, "invalid token address", http.StatusBadRequest)
		return
	}
	token := common.HexToAddress(tokenHex)

	key := cache.CollateralInfoKey(token.Hex())
	if h.cache != nil {
		if cached, found := h.cache.Get(key); found {
			if info, ok := cached.(types.CollateralInfo); ok {
				h.writeJSON(w, http.StatusOK, info)
				return
			}
		}
	}

	info, err := h.vault.GetDustCollateralInfo(token)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if h.cache != nil {
		h.cache.Set(key, info, h.cacheTTL)
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *readHandler) marketIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "marketID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		h.writeError(w, "invalid market id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *readHandler) orderIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "orderID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		h.writeError(w, "invalid order id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *readHandler) engineParam(w http.ResponseWriter, r *http.Request) (engineHandle, bool) {
	marketID, ok := h.marketIDParam(w, r)
	if !ok {
		return nil, false
	}
	engine, _, err := h.factory.GetMarketInfo(marketID)
	if err != nil {
		h.writeDomainError(w, err)
		return nil, false
	}
	return engine, true
}

// engineHandle is the slice of the engine surface the read handlers need.
type engineHandle interface {
	MarketID() uint64
	Orders() []types.Order
	GetOrderInfo(orderID uint64) (types.Order, error)
	GetOrderState(orderID uint64) (types.OrderState, error)
}

func (h *readHandler) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrOrderNotFound),
		errors.Is(err, types.ErrUnknownToken):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrInvalidOrder):
		status = http.StatusBadRequest
	}
	h.writeError(w, err.Error(), status)
}

func (h *readHandler) writeError(w http.ResponseWriter, msg string, status int) {
	h.writeJSON(w, status, ErrorResponse{Error: msg})
}

func (h *readHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("response-encode-failed", zap.Error(err))
	}
}
