package payment

import (
	"context"
)

type PaymentProvider interface {
	ProcessPayment(ctx context.Context, request *PaymentRequest) (*PaymentResponse, error)
	RefundPayment(ctx context.Context, request *RefundRequest) (*RefundResponse, error)
}

type PaymentRequest struct {
	PaymentMethodID string            `json:"payment_method_id"`
	Amount          float64           `json:"amount"`
	Currency        string            `json:"currency"`
	Description     string            `json:"description"`
	CustomerID      string            `json:"customer_id"`
	Metadata        map[string]string `json:"metadata"`
}

type PaymentResponse struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	CreatedAt     int64   `json:"created_at"`
}

type RefundRequest struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Reason        string  `json:"reason"`
}

type RefundResponse struct {
	RefundID  string  `json:"refund_id"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	CreatedAt int64   `json:"created_at"`
}
