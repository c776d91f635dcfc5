package allocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/membertown/mt-allocation/internal/module/memberapp/booking"
	"github.com/membertown/mt-allocation/internal/module/memberapp/cancellation"
	"github.com/membertown/mt-allocation/internal/pkg/middleware"
	"github.com/membertown/mt-allocation/pkg/errors"
	publicMiddleware "github.com/membertown/mt-allocation/pkg/middleware"
	"github.com/membertown/mt-allocation/pkg/response"
	"github.com/membertown/mt-allocation/pkg/status"
)

// HTTPHandler exposes the back-office overrides. Both operations reuse the
// member-side use cases with the override path enabled.
type HTTPHandler struct {
	Validate            *validator.Validate
	BookingUseCase      booking.BookingUseCase
	CancellationUseCase cancellation.CancellationUseCase
}

func InitHTTPHandler(router *mux.Router, adminSession *middleware.AdminSession, validate *validator.Validate, bookingUseCase booking.BookingUseCase, cancellationUseCase cancellation.CancellationUseCase) {
	handler := &HTTPHandler{
		Validate:            validate,
		BookingUseCase:      bookingUseCase,
		CancellationUseCase: cancellationUseCase,
	}

	router.HandleFunc("/mt-allocation/v1/adminapp/bookings", publicMiddleware.SetRouteChain(handler.ReserveForMember, adminSession.Verify)).Methods(http.MethodPost)
	router.HandleFunc("/mt-allocation/v1/adminapp/allocations/{allocation_id}/cancel", publicMiddleware.SetRouteChain(handler.CancelWithOverride, adminSession.Verify)).Methods(http.MethodPost)
}

func (handler HTTPHandler) validate(ctx context.Context, payload interface{}) error {
	err := handler.Validate.StructCtx(ctx, payload)
	if err == nil {
		return nil
	}

	errorFields := err.(validator.ValidationErrors)

	errMessages := make([]string, len(errorFields))

	for k, errorField := range errorFields {
		errMessages[k] = fmt.Sprintf("invalid '%s' with value '%v'", errorField.Field(), errorField.Value())
	}

	return fmt.Errorf(strings.Join(errMessages, ", "))
}

func (handler HTTPHandler) ReserveForMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := booking.OverrideReserveRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.BookingUseCase.ReserveForMember(ctx, req)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	response.JSON(w, http.StatusCreated, response.RESTEnvelope{
		Status:  status.CREATED,
		Message: "the booking has been created",
		Data:    resp,
		Meta:    nil,
	})
}

func (handler HTTPHandler) CancelWithOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := cancellation.OverrideCancelRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	req.AllocationID = mux.Vars(r)["allocation_id"]

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.CancellationUseCase.CancelWithOverride(ctx, req)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "the allocation has been cancelled",
		Data:    resp,
		Meta:    nil,
	})
}
