package adapter

import "context"

// PaymentRequest is the provider-side view of a payment request, as returned by
// the gateway's fetch-by-id capability. Status carries the provider's own
// vocabulary untouched; normalization happens in the use case layer. Metadata may
// be a structured map, while Purpose is the free-text field some providers use to
// round-trip caller data.
type PaymentRequest struct {
	ID       string
	Status   string
	Purpose  string
	Metadata map[string]string
	Amount   int64
}

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string

	// CreatePaymentRequest registers a payment request and returns its provider id
	// and the checkout URL the member is sent to. purpose carries the member
	// identity so it survives the round trip back through the webhook.
	CreatePaymentRequest(ctx context.Context, amount int64, purpose, redirectURL, webhookURL string) (id string, checkoutURL string, err error)

	// FetchPaymentRequest returns the current provider-side state of a request.
	FetchPaymentRequest(ctx context.Context, requestID string) (*PaymentRequest, error)
}
