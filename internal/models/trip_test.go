package models

import "testing"

func TestTripStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    TripStatus
		to      TripStatus
		allowed bool
	}{
		{"searching to matched", TripStatusSearching, TripStatusDriverMatched, true},
		{"searching to cancelled", TripStatusSearching, TripStatusCancelled, true},
		{"searching skips to in_progress", TripStatusSearching, TripStatusInProgress, false},
		{"matched to approaching", TripStatusDriverMatched, TripStatusDriverApproaching, true},
		{"approaching to arrived", TripStatusDriverApproaching, TripStatusDriverArrived, true},
		{"arrived to in_progress", TripStatusDriverArrived, TripStatusInProgress, true},
		{"in_progress to completed", TripStatusInProgress, TripStatusCompleted, true},
		{"in_progress to cancelled", TripStatusInProgress, TripStatusCancelled, true},
		{"no going backwards", TripStatusDriverArrived, TripStatusDriverApproaching, false},
		{"completed is terminal", TripStatusCompleted, TripStatusSearching, false},
		{"completed cannot cancel", TripStatusCompleted, TripStatusCancelled, false},
		{"cancelled is terminal", TripStatusCancelled, TripStatusDriverMatched, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestTripStatusIsTerminal(t *testing.T) {
	for _, status := range InFlightStatuses() {
		if status.IsTerminal() {
			t.Errorf("%s should not be terminal", status)
		}
	}

	if !TripStatusCompleted.IsTerminal() {
		t.Error("completed should be terminal")
	}
	if !TripStatusCancelled.IsTerminal() {
		t.Error("cancelled should be terminal")
	}
}

func TestTripStatusIsValid(t *testing.T) {
	if !TripStatusSearching.IsValid() {
		t.Error("searching should be valid")
	}
	if TripStatus("teleporting").IsValid() {
		t.Error("unknown status should not be valid")
	}
}

func TestLocationCoordinates(t *testing.T) {
	loc := NewLocation(48.8566, 2.3522, "Paris", "City Hall")

	if loc.Latitude() != 48.8566 {
		t.Errorf("Latitude() = %v, want 48.8566", loc.Latitude())
	}
	if loc.Longitude() != 2.3522 {
		t.Errorf("Longitude() = %v, want 2.3522", loc.Longitude())
	}
	if !loc.HasCoordinates() {
		t.Error("location with coordinates should report HasCoordinates")
	}

	var empty Location
	if empty.HasCoordinates() {
		t.Error("zero location should not report HasCoordinates")
	}
}
