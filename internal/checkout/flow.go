package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/klarna-bridge/internal/klarna"
)

// State is the position of a checkout attempt in the payment protocol.
type State string

const (
	StateIdle           State = "idle"
	StateSessionCreated State = "session_created"
	StateAuthorized     State = "authorized"
	StateOrderCreated   State = "order_created"
	// StateDeclined is terminal: the customer did not approve payment and
	// no order will be created from this attempt.
	StateDeclined State = "declined"
)

// SessionAPI is the slice of the payments API a flow drives.
type SessionAPI interface {
	CreateSession(ctx context.Context, req klarna.SessionRequest) (*klarna.SessionResponse, error)
	CreateOrder(ctx context.Context, authorizationToken string, req klarna.OrderRequest) (*klarna.OrderResponse, error)
}

// TransitionError reports an operation attempted from the wrong state.
type TransitionError struct {
	Op    string
	State State
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("checkout: cannot %s in state %q", e.Op, e.State)
}

// Flow sequences one checkout attempt:
//
//	Idle -> SessionCreated -> Authorized -> OrderCreated
//
// with Declined as the terminal state when the customer does not approve.
// A failed call leaves the state where it was; the caller decides whether
// to retry. Post-order operations (capture, refund, cancel, release) are
// not flow states — they go through OrderManagementService against the
// order id.
//
// A Flow tracks a single attempt and is not safe for concurrent use.
type Flow struct {
	payments SessionAPI

	state       State
	clientToken string
	authToken   string
	orderID     string
}

// NewFlow starts a flow at Idle.
func NewFlow(payments SessionAPI) *Flow {
	return &Flow{payments: payments, state: StateIdle}
}

// State returns the current protocol state.
func (f *Flow) State() State { return f.state }

// ClientToken returns the session client token, empty before a session
// exists. It is secret-bearing and intended only for the rendering
// component.
func (f *Flow) ClientToken() string { return f.clientToken }

// OrderID returns the created order id, empty before order creation.
func (f *Flow) OrderID() string { return f.orderID }

// CreateSession moves Idle to SessionCreated. On failure the flow stays
// Idle and checkout cannot begin.
func (f *Flow) CreateSession(ctx context.Context, req klarna.SessionRequest) (*klarna.SessionResponse, error) {
	if f.state != StateIdle {
		return nil, &TransitionError{Op: "create session", State: f.state}
	}
	resp, err := f.payments.CreateSession(ctx, req)
	if err != nil {
		return nil, err
	}
	f.clientToken = resp.ClientToken
	f.state = StateSessionCreated
	return resp, nil
}

// Authorize consumes the result of the external authorize step. A
// non-approved outcome moves the flow to the terminal Declined state. An
// approved outcome stores the token and moves to Authorized; the token is
// single-use for order creation (enforced server-side). Re-authorization
// from Authorized replaces the stored token.
func (f *Flow) Authorize(token string, approved bool) error {
	if f.state != StateSessionCreated && f.state != StateAuthorized {
		return &TransitionError{Op: "authorize", State: f.state}
	}
	if !approved {
		f.state = StateDeclined
		return nil
	}
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("checkout: approved authorization carried an empty token")
	}
	f.authToken = token
	f.state = StateAuthorized
	return nil
}

// CreateOrder moves Authorized to OrderCreated using the stored
// authorization token. On failure the flow remains Authorized: the caller
// may retry with the same token for as long as the provider considers it
// valid.
func (f *Flow) CreateOrder(ctx context.Context, req klarna.OrderRequest) (*klarna.OrderResponse, error) {
	if f.state != StateAuthorized {
		return nil, &TransitionError{Op: "create order", State: f.state}
	}
	resp, err := f.payments.CreateOrder(ctx, f.authToken, req)
	if err != nil {
		return nil, err
	}
	f.orderID = resp.OrderID
	f.state = StateOrderCreated
	return resp, nil
}
