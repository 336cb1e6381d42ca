package handlers

import (
	"errors"
	"net/http"

	"tripmingle/internal/middleware"
	"tripmingle/internal/models"
	"tripmingle/internal/services"
	"tripmingle/internal/utils"
	"tripmingle/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripHandler struct {
	tripService services.TripService
}

func NewTripHandler(tripService services.TripService) *TripHandler {
	return &TripHandler{
		tripService: tripService,
	}
}

// CreateTrip opens a new trip for the authenticated client.
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var request validators.CreateTripRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if validationErrors := validators.ValidateCreateTripRequest(&request); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrorDetails(validationErrors))
		return
	}

	clientID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), clientID, &request)
	if err != nil {
		h.respondTripError(c, err)
		return
	}

	utils.CreatedResponse(c, "Trip created successfully", trip)
}

// GetTrip returns one trip by ID.
func (h *TripHandler) GetTrip(c *gin.Context) {
	tripID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	trip, err := h.tripService.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		h.respondTripError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip retrieved successfully", trip)
}

// GetTripByNumber returns one trip by its human-readable reference.
func (h *TripHandler) GetTripByNumber(c *gin.Context) {
	trip, err := h.tripService.GetTripByNumber(c.Request.Context(), c.Param("trip_number"))
	if err != nil {
		h.respondTripError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip retrieved successfully", trip)
}

// ListTrips returns the authenticated user's trip history.
func (h *TripHandler) ListTrips(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)

	var statusFilter *models.TripStatus
	if raw := c.Query("status"); raw != "" {
		status := models.TripStatus(raw)
		if !status.IsValid() {
			utils.BadRequestResponse(c, "Invalid status filter")
			return
		}
		statusFilter = &status
	}

	var (
		trips []*models.Trip
		total int64
		err   error
	)
	if c.GetString("user_type") == string(models.UserTypePartner) {
		trips, total, err = h.tripService.GetPartnerTrips(c.Request.Context(), userID, statusFilter, params)
	} else {
		trips, total, err = h.tripService.GetClientTrips(c.Request.Context(), userID, statusFilter, params)
	}
	if err != nil {
		h.respondTripError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Trips retrieved successfully", trips, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// GetActiveTrip returns the authenticated user's in-flight trip, if any.
func (h *TripHandler) GetActiveTrip(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var (
		trip *models.Trip
		err  error
	)
	if c.GetString("user_type") == string(models.UserTypePartner) {
		trip, err = h.tripService.GetActivePartnerTrip(c.Request.Context(), userID)
	} else {
		trip, err = h.tripService.GetActiveClientTrip(c.Request.Context(), userID)
	}
	if err != nil {
		h.respondTripError(c, err)
		return
	}

	utils.SuccessResponse(c, "Active trip retrieved successfully", trip)
}

// AcceptTrip assigns the authenticated partner to a searching trip.
func (h *TripHandler) AcceptTrip(c *gin.Context) {
	tripID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	var request validators.AcceptTripRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if validationErrors := validators.ValidateAcceptTripRequest(&request); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrorDetails(validationErrors))
		return
	}

	partnerID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	vehicleID, err := primitive.ObjectIDFromHex(request.VehicleID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid vehicle ID")
		return
	}

	trip, err := h.tripService.AcceptTrip(c.Request.Context(), tripID, partnerID, vehicleID)
	if err != nil {
		h.respondTripError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip accepted successfully", trip)
}

// RefuseTrip declines a searching trip on behalf of the authenticated partner.
func (h *TripHandler) RefuseTrip(c *gin.Context) {
	tripID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	var request validators.RefuseTripRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	partnerID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	if err := h.tripService.RefuseTrip(c.Request.Context(), tripID, partnerID, request.Reason); err != nil {
		h.respondTripError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip refused", nil)
}

// UpdateTripStatus advances the trip through its lifecycle.
func (h *TripHandler) UpdateTripStatus(c *gin.Context) {
	tripID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	var request validators.UpdateTripStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if validationErrors := validators.ValidateUpdateTripStatusRequest(&request); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrorDetails(validationErrors))
		return
	}

	partnerID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	trip, err := h.tripService.UpdateTripStatus(c.Request.Context(), tripID, partnerID, models.TripStatus(request.Status))
	if err != nil {
		h.respondTripError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip status updated successfully", trip)
}

// CancelTrip cancels the trip for whoever is authenticated.
func (h *TripHandler) CancelTrip(c *gin.Context) {
	tripID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	var request validators.CancelTripRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	actor := models.CancelledByClient
	if c.GetString("user_type") == string(models.UserTypePartner) {
		actor = models.CancelledByPartner
	}

	trip, err := h.tripService.CancelTrip(c.Request.Context(), tripID, userID, actor, request.Reason)
	if err != nil {
		h.respondTripError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip cancelled successfully", trip)
}

// SetPaymentMethod changes how the client pays before the trip starts.
func (h *TripHandler) SetPaymentMethod(c *gin.Context) {
	tripID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	var request validators.SetPaymentMethodRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if validationErrors := validators.ValidateSetPaymentMethodRequest(&request); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrorDetails(validationErrors))
		return
	}

	clientID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	err := h.tripService.SetPaymentMethod(c.Request.Context(), tripID, clientID, models.PaymentMethod(request.PaymentMethod))
	if err != nil {
		h.respondTripError(c, err)
		return
	}

	utils.SuccessResponse(c, "Payment method updated successfully", nil)
}

// SetPricing replaces the fare breakdown on a trip that has not finished.
func (h *TripHandler) SetPricing(c *gin.Context) {
	tripID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	var request validators.SetPricingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if validationErrors := validators.ValidateSetPricingRequest(&request); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrorDetails(validationErrors))
		return
	}

	clientID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	pricing := &models.Pricing{
		BaseFare:     request.BaseFare,
		DistanceFare: request.DistanceFare,
		Taxes:        request.Taxes,
		Total:        request.Total,
		Currency:     request.Currency,
	}

	if err := h.tripService.SetTripPricing(c.Request.Context(), tripID, clientID, pricing); err != nil {
		h.respondTripError(c, err)
		return
	}

	utils.SuccessResponse(c, "Pricing updated successfully", nil)
}

func (h *TripHandler) respondTripError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTripNotFound):
		utils.NotFoundResponse(c, "Trip")
	case errors.Is(err, services.ErrTripConflict), errors.Is(err, services.ErrActiveTripExists):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrTripNotSearching), errors.Is(err, services.ErrTerminalTrip):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrPaymentMethodFixed), errors.Is(err, services.ErrNoPartnerAssigned):
		utils.BadRequestResponse(c, err.Error())
	case errors.Is(err, services.ErrTripNotOwned), errors.Is(err, services.ErrVehicleNotOwned),
		errors.Is(err, services.ErrNotAClient), errors.Is(err, services.ErrNotAPartner):
		utils.ForbiddenResponse(c, err.Error())
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, "TRIP_OPERATION_FAILED", err.Error())
	}
}

func parseObjectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

func validationErrorDetails(errs validators.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, err := range errs {
		details[err.Field] = err.Message
	}
	return details
}
