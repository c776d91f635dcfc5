package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
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
	Validate       *validator.Validate
	BookingUseCase BookingUseCase
}

func InitHTTPHandler(router *mux.Router, memberSession *middleware.MemberSession, validate *validator.Validate, bookingUseCase BookingUseCase) {
	handler := &HTTPHandler{
		Validate:       validate,
		BookingUseCase: bookingUseCase,
	}

	router.HandleFunc("/mt-allocation/v1/memberapp/bookings", publicMiddleware.SetRouteChain(handler.Reserve, memberSession.Verify)).Methods(http.MethodPost)
	router.HandleFunc("/mt-allocation/v1/memberapp/allocations", publicMiddleware.SetRouteChain(handler.GetActiveAllocations, memberSession.Verify)).Methods(http.MethodGet)
	router.HandleFunc("/mt-allocation/v1/memberapp/allocations/history", publicMiddleware.SetRouteChain(handler.GetManyAllocation, memberSession.Verify)).Methods(http.MethodGet)
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

func (handler HTTPHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := ReserveRequest{}
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

	resp, err := handler.BookingUseCase.Reserve(ctx, req)
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

func (handler HTTPHandler) GetActiveAllocations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := GetActiveAllocationsRequest{
		PoolID: r.URL.Query().Get("pool_id"),
	}

	resp, err := handler.BookingUseCase.GetActiveAllocations(ctx, req)
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
		Message: "list of active allocations",
		Data:    resp,
		Meta:    nil,
	})
}

func (handler HTTPHandler) GetManyAllocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, _ := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	size, _ := strconv.ParseInt(r.URL.Query().Get("size"), 10, 64)

	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	req := GetManyAllocationRequest{
		Page: page,
		Size: size,
	}

	resp, err := handler.BookingUseCase.GetManyAllocation(ctx, req)
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
		Message: "list of allocations",
		Data:    resp,
		Meta: map[string]int64{
			"page": page,
			"size": size,
		},
	})
}
