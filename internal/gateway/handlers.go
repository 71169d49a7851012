package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/klarna-bridge/internal/klarna"
)

// Handler exposes the provider client as backend proxy routes. It adds
// inbound shape validation and error mapping but no business logic; the
// provider stays authoritative for everything else, including the
// order-amount-equals-sum-of-lines invariant.
type Handler struct {
	Svc      *klarna.Services
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// NewHandler builds a Handler with a fresh validator.
func NewHandler(svc *klarna.Services, logger zerolog.Logger) *Handler {
	return &Handler{
		Svc:      svc,
		Validate: validator.New(validator.WithRequiredStructEnabled()),
		Logger:   logger,
	}
}

type orderLineBody struct {
	Type           string `json:"type" validate:"required"`
	Reference      string `json:"reference" validate:"required"`
	Name           string `json:"name" validate:"required"`
	Quantity       int    `json:"quantity" validate:"gt=0"`
	QuantityUnit   string `json:"quantity_unit"`
	UnitPrice      int64  `json:"unit_price" validate:"gte=0"`
	TaxRate        int    `json:"tax_rate" validate:"gte=0"`
	TotalAmount    int64  `json:"total_amount"`
	TotalTaxAmount int64  `json:"total_tax_amount"`
}

type sessionBody struct {
	PurchaseCountry  string          `json:"purchase_country" validate:"required,len=2"`
	PurchaseCurrency string          `json:"purchase_currency" validate:"required,len=3"`
	Locale           string          `json:"locale" validate:"required"`
	OrderAmount      int64           `json:"order_amount" validate:"gte=0"`
	OrderTaxAmount   int64           `json:"order_tax_amount" validate:"gte=0"`
	OrderLines       []orderLineBody `json:"order_lines" validate:"required,min=1,dive"`
	Intent           string          `json:"intent"`
}

type createOrderBody struct {
	AuthorizationToken string      `json:"authorization_token" validate:"required"`
	Order              sessionBody `json:"order" validate:"required"`
	MerchantReference1 string      `json:"merchant_reference1"`
}

type customerTokenBody struct {
	AuthorizationToken string           `json:"authorization_token" validate:"required"`
	Customer           *klarna.Customer `json:"customer"`
	BillingAddress     *klarna.Address  `json:"billing_address"`
	Description        string           `json:"description"`
}

func (b sessionBody) toSessionRequest() klarna.SessionRequest {
	return klarna.SessionRequest{
		PurchaseCountry:  b.PurchaseCountry,
		PurchaseCurrency: b.PurchaseCurrency,
		Locale:           b.Locale,
		OrderAmount:      b.OrderAmount,
		OrderTaxAmount:   b.OrderTaxAmount,
		OrderLines:       b.toOrderLines(),
		Intent:           b.Intent,
	}
}

func (b sessionBody) toOrderRequest(merchantReference string) klarna.OrderRequest {
	return klarna.OrderRequest{
		PurchaseCountry:    b.PurchaseCountry,
		PurchaseCurrency:   b.PurchaseCurrency,
		Locale:             b.Locale,
		OrderAmount:        b.OrderAmount,
		OrderTaxAmount:     b.OrderTaxAmount,
		OrderLines:         b.toOrderLines(),
		MerchantReference1: merchantReference,
	}
}

func (b sessionBody) toOrderLines() []klarna.OrderLine {
	lines := make([]klarna.OrderLine, 0, len(b.OrderLines))
	for _, l := range b.OrderLines {
		lines = append(lines, klarna.OrderLine{
			Type:           l.Type,
			Reference:      l.Reference,
			Name:           l.Name,
			Quantity:       l.Quantity,
			QuantityUnit:   l.QuantityUnit,
			UnitPrice:      l.UnitPrice,
			TaxRate:        l.TaxRate,
			TotalAmount:    l.TotalAmount,
			TotalTaxAmount: l.TotalTaxAmount,
		})
	}
	return lines
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return false
	}
	if err := h.Validate.Struct(v); err != nil {
		JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
		return false
	}
	return true
}

// CreateSession proxies session creation.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body sessionBody
	if !h.decodeAndValidate(w, r, &body) {
		return
	}
	resp, err := h.Svc.Payments.CreateSession(r.Context(), body.toSessionRequest())
	if err != nil {
		h.Logger.Warn().Err(err).Msg("create session")
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// CreateOrder proxies order creation from an authorization token.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var body createOrderBody
	if !h.decodeAndValidate(w, r, &body) {
		return
	}
	resp, err := h.Svc.Payments.CreateOrder(r.Context(), body.AuthorizationToken, body.Order.toOrderRequest(body.MerchantReference1))
	if err != nil {
		h.Logger.Warn().Err(err).Msg("create order")
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// CreateCustomerToken exchanges an authorization for a customer token.
func (h *Handler) CreateCustomerToken(w http.ResponseWriter, r *http.Request) {
	var body customerTokenBody
	if !h.decodeAndValidate(w, r, &body) {
		return
	}
	resp, err := h.Svc.Payments.CreateCustomerToken(r.Context(), body.AuthorizationToken, klarna.CustomerTokenCreateRequest{
		Customer:       body.Customer,
		BillingAddress: body.BillingAddress,
		Description:    body.Description,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// GetCustomerToken reads a customer token by id.
func (h *Handler) GetCustomerToken(w http.ResponseWriter, r *http.Request) {
	tokenID := strings.TrimSpace(chi.URLParam(r, "tokenID"))
	if tokenID == "" {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "tokenID is required", nil)
		return
	}
	resp, err := h.Svc.CustomerTokens.Read(r.Context(), tokenID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// CreateCustomerTokenOrder places an order against a stored customer token.
func (h *Handler) CreateCustomerTokenOrder(w http.ResponseWriter, r *http.Request) {
	tokenID := strings.TrimSpace(chi.URLParam(r, "tokenID"))
	if tokenID == "" {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "tokenID is required", nil)
		return
	}
	var body sessionBody
	if !h.decodeAndValidate(w, r, &body) {
		return
	}
	resp, err := h.Svc.CustomerTokens.CreateOrder(r.Context(), tokenID, body.toOrderRequest(""))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// GetOrder reads an order through order management.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "orderID is required", nil)
		return
	}
	resp, err := h.Svc.OrderManagement.Get(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// ListCaptures lists the captures recorded against an order.
func (h *Handler) ListCaptures(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "orderID is required", nil)
		return
	}
	captures, err := h.Svc.OrderManagement.Captures(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, captures)
}

// CaptureOrder charges part or all of an authorized amount.
func (h *Handler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "orderID is required", nil)
		return
	}
	var req klarna.CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	if req.CapturedAmount <= 0 {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "captured_amount must be positive", nil)
		return
	}
	if err := h.Svc.OrderManagement.Capture(r.Context(), orderID, req); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefundOrder returns part or all of a captured amount.
func (h *Handler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "orderID is required", nil)
		return
	}
	var req klarna.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	if req.RefundedAmount <= 0 {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "refunded_amount must be positive", nil)
		return
	}
	if err := h.Svc.OrderManagement.Refund(r.Context(), orderID, req); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelOrder cancels an authorized, uncaptured order. The body is optional.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "orderID is required", nil)
		return
	}
	var req *klarna.CancelOrderRequest
	if r.ContentLength != 0 {
		req = &klarna.CancelOrderRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
			return
		}
	}
	if err := h.Svc.OrderManagement.Cancel(r.Context(), orderID, req); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReleaseAuthorization releases the uncaptured remainder of an order's
// authorization. A caller-supplied Klarna-Idempotency-Key header is passed
// through to the provider; otherwise a fresh key is generated per call.
func (h *Handler) ReleaseAuthorization(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "orderID is required", nil)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Klarna-Idempotency-Key"))
	if err := h.Svc.OrderManagement.ReleaseRemainingAuthorization(r.Context(), orderID, key); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDisputes lists one page of disputes.
func (h *Handler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	opts := klarna.DisputeListOptions{
		ContinuationToken: strings.TrimSpace(r.URL.Query().Get("continuation_token")),
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	resp, err := h.Svc.Disputes.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

type distributionResp struct {
	Kind        string                     `json:"kind"`
	ContentType string                     `json:"content_type"`
	SourceURL   string                     `json:"source_url"`
	Status      *klarna.DistributionStatus `json:"status,omitempty"`
	DataURL     string                     `json:"data_url,omitempty"`
}

// FetchDistribution retrieves a distribution asset and renders it as JSON,
// with binary payloads carried as a data URL.
func (h *Handler) FetchDistribution(w http.ResponseWriter, r *http.Request) {
	resultURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if resultURL == "" {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "url query parameter is required", nil)
		return
	}
	asset, err := h.Svc.Distribution.Fetch(r.Context(), resultURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, distributionResp{
		Kind:        assetKindLabel(asset.Kind),
		ContentType: asset.ContentType,
		SourceURL:   asset.SourceURL,
		Status:      asset.Status,
		DataURL:     asset.DataURL(true),
	})
}

func assetKindLabel(kind klarna.AssetKind) string {
	switch kind {
	case klarna.AssetImage:
		return "image"
	case klarna.AssetStatus:
		return "status"
	default:
		return "opaque"
	}
}

// CreateHPPSession opens a hosted-payment-page session.
func (h *Handler) CreateHPPSession(w http.ResponseWriter, r *http.Request) {
	var req klarna.HPPSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	if strings.TrimSpace(req.PaymentSessionURL) == "" {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "payment_session_url is required", nil)
		return
	}
	resp, err := h.Svc.HPP.CreateSession(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// GetHPPSession reads a hosted-payment-page session by id.
func (h *Handler) GetHPPSession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "sessionID is required", nil)
		return
	}
	resp, err := h.Svc.HPP.GetSession(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}
