package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/status"
	"github.com/sirupsen/logrus"
)

type RefundRequest struct {
	OrderID string  `json:"-"`
	Amount  float64 `json:"amount"`
	Reason  string  `json:"reason"`
}

type RefundResponse struct {
	StatusCode    string  `json:"status_code"`
	StatusMessage string  `json:"status_message"`
	OrderID       string  `json:"order_id"`
	RefundAmount  float64 `json:"refund_amount"`
	TransactionID string  `json:"transaction_id"`
}

// ProviderRepository talks to the payment provider. Provider-side outcomes
// are not transactionally linked to the local store; callers treat these
// calls as best-effort.
type ProviderRepository interface {
	RequestRefund(ctx context.Context, req RefundRequest) (RefundResponse, error)
}

type providerRepository struct {
	baseURL      string
	basicAuthKey string
	logger       *logrus.Logger
	hc           *http.Client
}

func NewProviderRepository(baseURL string, basicAuthKey string, logger *logrus.Logger, hc *http.Client) ProviderRepository {
	return &providerRepository{
		baseURL:      baseURL,
		basicAuthKey: basicAuthKey,
		logger:       logger,
		hc:           hc,
	}
}

// RequestRefund implements ProviderRepository.
func (r *providerRepository) RequestRefund(ctx context.Context, req RefundRequest) (RefundResponse, error) {
	reqBuff, _ := json.Marshal(req)
	body := bytes.NewBuffer(reqBuff)
	url := fmt.Sprintf("%s/v2/%s/refund", r.baseURL, req.OrderID)

	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return RefundResponse{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while requesting refund through the payment provider")
	}

	hr.Header.Add("Content-Type", "application/json")
	hr.Header.Add("Accept", "application/json")
	hr.Header.Add("Authorization", fmt.Sprintf("Basic %s", r.basicAuthKey))

	hresp, err := r.hc.Do(hr)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return RefundResponse{}, errors.New(http.StatusServiceUnavailable, status.SERVICE_UNAVAILABLE, "payment provider is unreachable")
	}

	defer hresp.Body.Close()

	respBody, err := io.ReadAll(hresp.Body)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return RefundResponse{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while requesting refund through the payment provider")
	}

	if hresp.StatusCode < 200 || hresp.StatusCode > 299 {
		err := fmt.Errorf("payment provider responded with status %d: %s", hresp.StatusCode, string(respBody))
		r.logger.WithContext(ctx).WithError(err).Error()
		return RefundResponse{}, errors.New(http.StatusServiceUnavailable, status.SERVICE_UNAVAILABLE, "payment provider rejected the refund request")
	}

	var resp RefundResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return RefundResponse{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while requesting refund through the payment provider")
	}

	return resp, nil
}
