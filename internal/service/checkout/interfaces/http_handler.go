// internal/service/checkout/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"kasir/internal/pkg/logger"
	"kasir/internal/service/checkout/application"
	"kasir/internal/service/checkout/domain"
)

// CheckoutAPI 应用服务在入站侧暴露的能力。
type CheckoutAPI interface {
	OpenCheckout(ctx context.Context, userID, cartID string) (*domain.Checkout, error)
	FinalizeCheckout(ctx context.Context, userID, checkoutID, addressID string) (*domain.Checkout, error)
	CancelCheckout(ctx context.Context, userID, checkoutID string) (*domain.Checkout, error)
	GetCheckout(ctx context.Context, userID, checkoutID string) (*domain.Checkout, error)
	GetActiveCheckoutByUser(ctx context.Context, userID string) (*domain.Checkout, error)
	ListCheckouts(ctx context.Context, query domain.ListQuery) (*domain.ListResult, error)
	Now() time.Time
}

// Handler 结账服务的 HTTP 入口。
type Handler struct {
	svc             CheckoutAPI
	tracer          trace.Tracer
	defaultPageSize int
}

func NewHandler(svc CheckoutAPI, tracer trace.Tracer, defaultPageSize int) *Handler {
	return &Handler{svc: svc, tracer: tracer, defaultPageSize: defaultPageSize}
}

// RegisterRoutes 注册所有路由。
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/checkout/open", h.traced("open-checkout", h.handleOpen))
	mux.HandleFunc("/checkout/finalize", h.traced("finalize-checkout", h.handleFinalize))
	mux.HandleFunc("/checkout/cancel", h.traced("cancel-checkout", h.handleCancel))
	mux.HandleFunc("/checkout", h.traced("get-checkout", h.handleGet))
	mux.HandleFunc("/checkout/active", h.traced("get-active-checkout", h.handleGetActive))
	mux.HandleFunc("/checkouts", h.traced("list-checkouts", h.handleList))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// traced 从请求头恢复追踪上下文并开启服务端 Span。
func (h *Handler) traced(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := h.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		next(w, r.WithContext(ctx))
	}
}

type openCheckoutRequest struct {
	UserID string `json:"userId"`
	CartID string `json:"cartId"`
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req openCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	checkout, err := h.svc.OpenCheckout(r.Context(), req.UserID, req.CartID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, application.ToCheckoutView(checkout, h.svc.Now()))
}

type finalizeCheckoutRequest struct {
	UserID     string `json:"userId"`
	CheckoutID string `json:"checkoutId"`
	AddressID  string `json:"addressId"`
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req finalizeCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.CheckoutID == "" {
		http.Error(w, "userId and checkoutId are required", http.StatusBadRequest)
		return
	}

	checkout, err := h.svc.FinalizeCheckout(r.Context(), req.UserID, req.CheckoutID, req.AddressID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, application.ToCheckoutView(checkout, h.svc.Now()))
}

type cancelCheckoutRequest struct {
	UserID     string `json:"userId"`
	CheckoutID string `json:"checkoutId"`
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req cancelCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.CheckoutID == "" {
		http.Error(w, "userId and checkoutId are required", http.StatusBadRequest)
		return
	}

	checkout, err := h.svc.CancelCheckout(r.Context(), req.UserID, req.CheckoutID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, application.ToCheckoutView(checkout, h.svc.Now()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	checkoutID := r.URL.Query().Get("checkoutId")
	if userID == "" || checkoutID == "" {
		http.Error(w, "userId and checkoutId are required", http.StatusBadRequest)
		return
	}

	checkout, err := h.svc.GetCheckout(r.Context(), userID, checkoutID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, application.ToCheckoutView(checkout, h.svc.Now()))
}

func (h *Handler) handleGetActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	checkout, err := h.svc.GetActiveCheckoutByUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if checkout == nil {
		h.writeError(w, r, domain.ErrCheckoutNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, application.ToCheckoutView(checkout, h.svc.Now()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	userID := q.Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	limit := h.defaultPageSize
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	result, err := h.svc.ListCheckouts(r.Context(), domain.ListQuery{
		UserID: userID,
		Status: domain.Status(q.Get("status")),
		Cursor: q.Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	now := h.svc.Now()
	view := application.CheckoutListView{NextCursor: result.NextCursor}
	for _, c := range result.Items {
		view.Items = append(view.Items, application.ToCheckoutView(c, now))
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError 把领域错误映射成 HTTP 状态码。
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrCartEmpty):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrAddressNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrCheckoutNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrCheckoutNotWaiting):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrAcquireFailed):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrCheckoutExpired):
		status = http.StatusGone
	}
	if status == http.StatusInternalServerError {
		logger.Ctx(r.Context()).Error().Err(err).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
