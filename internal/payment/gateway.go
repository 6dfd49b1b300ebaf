// Package payment normalizes the three checkout gateways behind one flow
// contract. The checkout manager branches on the flow kind only and never
// sees gateway-specific types.
package payment

import (
	"context"
	"net/url"
)

// FlowKind classifies how a gateway confirms funds.
type FlowKind int

const (
	// Synchronous confirms immediately in-process (cash on delivery).
	Synchronous FlowKind = iota
	// Redirect sends the customer to a hosted page; confirmation arrives
	// later as a signed callback.
	Redirect
	// TwoPhaseCapture creates an intent the client approves out of process,
	// then captures server-side.
	TwoPhaseCapture
)

// Confirmation is a gateway's final word on a payment.
type Confirmation struct {
	TransactionID string
	ResponseCode  string
}

// Flow is the common surface of every gateway adapter.
type Flow interface {
	// Method returns the payment method tag persisted on the order header.
	Method() string
	Kind() FlowKind
}

// SynchronousFlow confirms within the checkout request.
type SynchronousFlow interface {
	Flow
	Confirm(ctx context.Context, amount int64, ref string) (*Confirmation, error)
}

// InitiateRequest carries what a redirect gateway needs to build its hosted
// payment URL.
type InitiateRequest struct {
	Amount    int64
	Ref       string
	OrderInfo string
	ClientIP  string
}

// RedirectFlow defers confirmation to a signed callback. ConfirmCallback
// returns the correlation ref alongside the confirmation so the caller can
// recover the stashed checkout state.
type RedirectFlow interface {
	Flow
	Initiate(ctx context.Context, req InitiateRequest) (string, error)
	ConfirmCallback(params url.Values) (*Confirmation, string, error)
}

// CaptureFlow is the two-phase wallet contract.
type CaptureFlow interface {
	Flow
	CreateIntent(ctx context.Context, amount int64, ref string) (string, error)
	Capture(ctx context.Context, intentID string) (*Confirmation, error)
}

// Registry resolves a payment method tag to its flow.
type Registry struct {
	flows map[string]Flow
}

// NewRegistry builds a registry from the given flows.
func NewRegistry(flows ...Flow) *Registry {
	r := &Registry{flows: make(map[string]Flow, len(flows))}
	for _, f := range flows {
		r.flows[f.Method()] = f
	}
	return r
}

// Get returns the flow for a method tag, nil when unknown.
func (r *Registry) Get(method string) Flow {
	return r.flows[method]
}
