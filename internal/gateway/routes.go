package gateway

import (
	"github.com/go-chi/chi/v5"
)

// Mount attaches the proxy routes to a router. The idempotency middleware
// wraps the write routes; with no Redis client configured it is a no-op.
func (h *Handler) Mount(r chi.Router, idem Idem) {
	r.Group(func(g chi.Router) {
		g.Use(idem.Middleware)
		g.Post("/sessions", h.CreateSession)
		g.Post("/orders", h.CreateOrder)
		g.Post("/orders/{orderID}/captures", h.CaptureOrder)
		g.Post("/orders/{orderID}/refunds", h.RefundOrder)
		g.Post("/orders/{orderID}/cancel", h.CancelOrder)
		g.Post("/orders/{orderID}/release-remaining-authorization", h.ReleaseAuthorization)
		g.Post("/customer-tokens", h.CreateCustomerToken)
		g.Post("/customer-tokens/{tokenID}/order", h.CreateCustomerTokenOrder)
		g.Post("/hpp/sessions", h.CreateHPPSession)
	})

	r.Get("/orders/{orderID}", h.GetOrder)
	r.Get("/orders/{orderID}/captures", h.ListCaptures)
	r.Get("/customer-tokens/{tokenID}", h.GetCustomerToken)
	r.Get("/disputes", h.ListDisputes)
	r.Get("/distribution", h.FetchDistribution)
	r.Get("/hpp/sessions/{sessionID}", h.GetHPPSession)
}
