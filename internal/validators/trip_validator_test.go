package validators

import (
	"testing"
	"time"
)

func validCreateRequest() *CreateTripRequest {
	return &CreateTripRequest{
		PickupLocation: LocationRequest{
			Latitude:  48.8566,
			Longitude: 2.3522,
			Address:   "10 Rue de Rivoli",
		},
		DropoffLocation: LocationRequest{
			Latitude:  48.9000,
			Longitude: 2.3522,
			Address:   "25 Avenue des Champs",
		},
		TripDetails:   TripDetailsRequest{Passengers: 2},
		PaymentMethod: "card",
	}
}

func hasFieldError(errs ValidationErrors, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidateCreateTripRequest(t *testing.T) {
	if errs := ValidateCreateTripRequest(validCreateRequest()); len(errs) != 0 {
		t.Errorf("valid request produced errors: %v", errs)
	}
}

func TestValidateCreateTripRequestSameLocation(t *testing.T) {
	req := validCreateRequest()
	req.DropoffLocation = req.PickupLocation
	req.DropoffLocation.Address = "10 Rue de Rivoli"

	errs := ValidateCreateTripRequest(req)
	if !hasFieldError(errs, "dropoff_location") {
		t.Errorf("identical locations not rejected: %v", errs)
	}
}

func TestValidateCreateTripRequestTooFar(t *testing.T) {
	req := validCreateRequest()
	req.DropoffLocation.Latitude = 41.9028 // Rome, well past 500km
	req.DropoffLocation.Longitude = 12.4964

	errs := ValidateCreateTripRequest(req)
	if !hasFieldError(errs, "distance") {
		t.Errorf("over-long trip not rejected: %v", errs)
	}
}

func TestValidateCreateTripRequestScheduling(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	req := validCreateRequest()
	req.ScheduledAt = &past
	if errs := ValidateCreateTripRequest(req); !hasFieldError(errs, "scheduled_at") {
		t.Errorf("past schedule not rejected: %v", errs)
	}

	farFuture := time.Now().AddDate(0, 0, 10)
	req = validCreateRequest()
	req.ScheduledAt = &farFuture
	if errs := ValidateCreateTripRequest(req); !hasFieldError(errs, "scheduled_at") {
		t.Errorf("schedule beyond 7 days not rejected: %v", errs)
	}

	tomorrow := time.Now().Add(24 * time.Hour)
	req = validCreateRequest()
	req.ScheduledAt = &tomorrow
	if errs := ValidateCreateTripRequest(req); len(errs) != 0 {
		t.Errorf("valid schedule rejected: %v", errs)
	}
}

func TestValidateCreateTripRequestPassengers(t *testing.T) {
	req := validCreateRequest()
	req.TripDetails.Passengers = 0
	if errs := ValidateCreateTripRequest(req); len(errs) == 0 {
		t.Error("zero passengers not rejected")
	}

	req = validCreateRequest()
	req.TripDetails.Passengers = 9
	if errs := ValidateCreateTripRequest(req); len(errs) == 0 {
		t.Error("nine passengers not rejected")
	}
}

func TestValidateCreateTripRequestPaymentMethod(t *testing.T) {
	req := validCreateRequest()
	req.PaymentMethod = "barter"
	if errs := ValidateCreateTripRequest(req); len(errs) == 0 {
		t.Error("unknown payment method not rejected")
	}
}

func TestValidateUpdateTripStatusRequest(t *testing.T) {
	if errs := ValidateUpdateTripStatusRequest(&UpdateTripStatusRequest{Status: "in_progress"}); len(errs) != 0 {
		t.Errorf("valid status rejected: %v", errs)
	}

	// searching and cancelled are not reachable through this endpoint
	for _, status := range []string{"searching", "cancelled", "flying"} {
		if errs := ValidateUpdateTripStatusRequest(&UpdateTripStatusRequest{Status: status}); len(errs) == 0 {
			t.Errorf("status %q not rejected", status)
		}
	}
}

func TestValidateAcceptTripRequest(t *testing.T) {
	if errs := ValidateAcceptTripRequest(&AcceptTripRequest{VehicleID: "64b1f0a4c2ddc0ff00000001"}); len(errs) != 0 {
		t.Errorf("valid request rejected: %v", errs)
	}
	if errs := ValidateAcceptTripRequest(&AcceptTripRequest{VehicleID: "not-an-id"}); len(errs) == 0 {
		t.Error("malformed vehicle id not rejected")
	}
}

func TestValidateSetPricingRequest(t *testing.T) {
	req := &SetPricingRequest{BaseFare: 50, DistanceFare: 50, Taxes: 20, Total: 120, Currency: "USD"}
	if errs := ValidateSetPricingRequest(req); len(errs) != 0 {
		t.Errorf("valid pricing rejected: %v", errs)
	}
}

func TestValidateSetPricingRequestTotalMismatch(t *testing.T) {
	req := &SetPricingRequest{BaseFare: 50, DistanceFare: 50, Taxes: 20, Total: 100, Currency: "USD"}
	if errs := ValidateSetPricingRequest(req); !hasFieldError(errs, "total") {
		t.Errorf("mismatched total not rejected: %v", errs)
	}
}

func TestValidateSetPricingRequestCurrency(t *testing.T) {
	req := &SetPricingRequest{BaseFare: 100, Total: 100, Currency: "usd"}
	if errs := ValidateSetPricingRequest(req); !hasFieldError(errs, "Currency") {
		t.Errorf("lowercase currency not rejected: %v", errs)
	}
}
