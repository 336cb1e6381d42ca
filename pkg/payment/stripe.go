package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type StripeProvider struct {
	client        *client.API
	webhookSecret string
}

func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	sc := &client.API{}
	sc.Init(secretKey, nil)

	return &StripeProvider{
		client:        sc,
		webhookSecret: webhookSecret,
	}
}

func (s *StripeProvider) ProcessPayment(ctx context.Context, request *PaymentRequest) (*PaymentResponse, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(int64(request.Amount * 100)), // cents
		Currency:           stripe.String(request.Currency),
		PaymentMethod:      stripe.String(request.PaymentMethodID),
		Description:        stripe.String(request.Description),
		ConfirmationMethod: stripe.String("manual"),
		Confirm:            stripe.Bool(true),
	}

	if request.CustomerID != "" {
		params.Customer = stripe.String(request.CustomerID)
	}

	for key, value := range request.Metadata {
		params.AddMetadata(key, value)
	}

	pi, err := s.client.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &PaymentResponse{
		TransactionID: pi.ID,
		Status:        string(pi.Status),
		Amount:        float64(pi.Amount) / 100,
		Currency:      string(pi.Currency),
		CreatedAt:     pi.Created,
	}, nil
}

func (s *StripeProvider) RefundPayment(ctx context.Context, request *RefundRequest) (*RefundResponse, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(request.TransactionID),
		Reason:        stripe.String(request.Reason),
	}

	if request.Amount > 0 {
		params.Amount = stripe.Int64(int64(request.Amount * 100))
	}

	refund, err := s.client.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create refund: %w", err)
	}

	return &RefundResponse{
		RefundID:  refund.ID,
		Status:    string(refund.Status),
		Amount:    float64(refund.Amount) / 100,
		Currency:  string(refund.Currency),
		CreatedAt: refund.Created,
	}, nil
}
