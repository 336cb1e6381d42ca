package services

import (
	"context"
	"fmt"

	"tripmingle/internal/models"
	"tripmingle/pkg/logger"
	"tripmingle/pkg/payment"
)

type PaymentService interface {
	// ChargeTrip collects the trip total from the client. Only card trips
	// reach the payment provider; cash and mobile settle outside.
	ChargeTrip(ctx context.Context, trip *models.Trip) error
}

type paymentService struct {
	provider payment.PaymentProvider
	logger   *logger.Logger
}

func NewPaymentService(provider payment.PaymentProvider, logger *logger.Logger) PaymentService {
	return &paymentService{
		provider: provider,
		logger:   logger,
	}
}

func (s *paymentService) ChargeTrip(ctx context.Context, trip *models.Trip) error {
	if trip.PaymentMethod != models.PaymentMethodCard {
		return nil
	}
	if trip.Pricing == nil || trip.Pricing.Total <= 0 {
		return fmt.Errorf("trip %s has no pricing to charge", trip.ID.Hex())
	}
	if s.provider == nil {
		s.logger.WithTripID(trip.ID).Warn("No payment provider configured, skipping charge")
		return nil
	}

	response, err := s.provider.ProcessPayment(ctx, &payment.PaymentRequest{
		Amount:      trip.Pricing.Total,
		Currency:    trip.Pricing.Currency,
		Description: fmt.Sprintf("Trip %s", trip.TripNumber),
		CustomerID:  trip.ClientID.Hex(),
		Metadata: map[string]string{
			"trip_id":     trip.ID.Hex(),
			"trip_number": trip.TripNumber,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to charge trip %s: %w", trip.ID.Hex(), err)
	}

	s.logger.LogPaymentEvent(trip.ID, "charged", response.Amount, response.Currency)

	return nil
}
