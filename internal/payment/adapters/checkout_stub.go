package adapters

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"admissio/internal/payment/ports"
)

// StubCheckout is a local CheckoutPort for development and tests. It
// fabricates order references without talking to a provider.
type StubCheckout struct {
	BaseURL string
}

func NewStubCheckout() *StubCheckout {
	return &StubCheckout{BaseURL: "https://checkout.invalid"}
}

func (s *StubCheckout) CreateOrder(_ context.Context, applicationNumber string, _ float64) (ports.CheckoutOrder, error) {
	orderID := fmt.Sprintf("ORD-%s-%s", applicationNumber, uuid.NewString()[:8])
	return ports.CheckoutOrder{
		OrderID:     orderID,
		CheckoutURL: fmt.Sprintf("%s/pay/%s", s.BaseURL, orderID),
	}, nil
}
