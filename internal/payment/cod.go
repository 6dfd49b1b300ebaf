package payment

import (
	"context"
	"fmt"

	"checkout-service/internal/models"
)

// CODFlow is cash on delivery. Confirmation is immediate and always
// succeeds; collection happens out of band at delivery time.
type CODFlow struct{}

func NewCODFlow() *CODFlow { return &CODFlow{} }

func (f *CODFlow) Method() string { return models.PaymentMethodCOD }

func (f *CODFlow) Kind() FlowKind { return Synchronous }

func (f *CODFlow) Confirm(_ context.Context, _ int64, ref string) (*Confirmation, error) {
	return &Confirmation{
		TransactionID: fmt.Sprintf("COD-%s", ref),
		ResponseCode:  "00",
	}, nil
}
