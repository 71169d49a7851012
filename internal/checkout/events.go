package checkout

// EventKind identifies a payment-view lifecycle notification.
type EventKind string

const (
	EventInitialized  EventKind = "initialized"
	EventLoaded       EventKind = "loaded"
	EventAuthorized   EventKind = "authorized"
	EventReauthorized EventKind = "reauthorized"
	EventFinalized    EventKind = "finalized"
	EventResized      EventKind = "resized"
	EventFailed       EventKind = "failed"
)

// Event is one payment-view lifecycle notification, decoupling the flow
// from any particular vendor rendering mechanism. Only the fields for the
// given Kind are meaningful.
type Event struct {
	Kind EventKind

	// Authorized, Reauthorized, Finalized.
	Token    string
	Approved bool
	// Authorized only.
	FinalizeRequired bool

	// Resized only.
	Height float64

	// Failed only.
	Err error
}

// Handler consumes payment-view events.
type Handler func(Event)

// Apply routes an event into the flow. Authorization-bearing events drive
// the SessionCreated -> Authorized (or Declined) transition; the remaining
// kinds are informational and leave the flow untouched. A Failed event
// returns nil — the failure travels in the event itself and does not
// change protocol state.
func (f *Flow) Apply(ev Event) error {
	switch ev.Kind {
	case EventAuthorized, EventReauthorized, EventFinalized:
		return f.Authorize(ev.Token, ev.Approved)
	default:
		return nil
	}
}
