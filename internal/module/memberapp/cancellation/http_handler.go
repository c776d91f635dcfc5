package cancellation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/membertown/mt-allocation/internal/pkg/middleware"
	"github.com/membertown/mt-allocation/pkg/errors"
	publicMiddleware "github.com/membertown/mt-allocation/pkg/middleware"
	"github.com/membertown/mt-allocation/pkg/response"
	"github.com/membertown/mt-allocation/pkg/status"
)

type HTTPHandler struct {
	Validate            *validator.Validate
	CancellationUseCase CancellationUseCase
}

func InitHTTPHandler(router *mux.Router, memberSession *middleware.MemberSession, validate *validator.Validate, cancellationUseCase CancellationUseCase) {
	handler := &HTTPHandler{
		Validate:            validate,
		CancellationUseCase: cancellationUseCase,
	}

	router.HandleFunc("/mt-allocation/v1/memberapp/allocations/{allocation_id}/cancel", publicMiddleware.SetRouteChain(handler.Cancel, memberSession.Verify)).Methods(http.MethodPost)
	// Task-queue callback; Cloud Tasks authenticates at the infra layer, not
	// with a member session.
	router.HandleFunc("/mt-allocation/v1/memberapp/cancellations/on-refund-retry", publicMiddleware.SetRouteChain(handler.OnRefundRetry)).Methods(http.MethodPost)
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

func (handler HTTPHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := CancelRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
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

	resp, err := handler.CancellationUseCase.Cancel(ctx, req)
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

func (handler HTTPHandler) OnRefundRetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := RefundRetryRequest{}
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

	if err := handler.CancellationUseCase.OnRefundRetry(ctx, req); err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "the refund retry has been processed",
		Data:    nil,
		Meta:    nil,
	})
}
