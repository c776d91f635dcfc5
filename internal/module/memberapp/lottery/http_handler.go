package lottery

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
	Validate       *validator.Validate
	LotteryUseCase LotteryUseCase
}

func InitHTTPHandler(router *mux.Router, memberSession *middleware.MemberSession, validate *validator.Validate, lotteryUseCase LotteryUseCase) {
	handler := &HTTPHandler{
		Validate:       validate,
		LotteryUseCase: lotteryUseCase,
	}

	router.HandleFunc("/mt-allocation/v1/memberapp/draws", publicMiddleware.SetRouteChain(handler.Draw, memberSession.Verify)).Methods(http.MethodPost)
	router.HandleFunc("/mt-allocation/v1/memberapp/pools/{pool_id}/prize-units", publicMiddleware.SetRouteChain(handler.GetAvailableUnits, memberSession.Verify)).Methods(http.MethodGet)
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

func (handler HTTPHandler) Draw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := DrawRequest{}
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

	resp, err := handler.LotteryUseCase.Draw(ctx, req)
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
		Message: "the draw has been performed",
		Data:    resp,
		Meta:    nil,
	})
}

func (handler HTTPHandler) GetAvailableUnits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := GetAvailableUnitsRequest{
		PoolID: mux.Vars(r)["pool_id"],
	}

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.LotteryUseCase.GetAvailableUnits(ctx, req)
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
		Message: "list of available prize units",
		Data:    resp,
		Meta:    nil,
	})
}
