package ports

import (
	"context"
)

// CheckoutOrder is the provider-side reference for a started PSP payment.
type CheckoutOrder struct {
	OrderID     string
	CheckoutURL string
}

// CheckoutPort defines the interface to the external payment service
// provider. The payment service depends on this port; adapters (PSP HTTP
// client, in-process stub) implement it. Only the order reference matters
// here; settlement arrives later through the confirm endpoint.
type CheckoutPort interface {
	// CreateOrder registers a checkout with the provider and returns its
	// order reference.
	CreateOrder(ctx context.Context, applicationNumber string, amount float64) (CheckoutOrder, error)
}
