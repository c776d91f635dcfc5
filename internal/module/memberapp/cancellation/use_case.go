package cancellation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/membertown/mt-allocation/internal/module/memberapp/allocation"
	"github.com/membertown/mt-allocation/internal/module/memberapp/booking"
	"github.com/membertown/mt-allocation/internal/module/memberapp/lottery"
	"github.com/membertown/mt-allocation/internal/module/memberapp/payment"
	"github.com/membertown/mt-allocation/internal/module/memberapp/pool"
	"github.com/membertown/mt-allocation/internal/pkg/counter"
	"github.com/membertown/mt-allocation/internal/pkg/session"
	"github.com/membertown/mt-allocation/internal/pkg/util"
	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/gctasks"
	"github.com/membertown/mt-allocation/pkg/pubsub"
	"github.com/membertown/mt-allocation/pkg/status"
	"github.com/sirupsen/logrus"
)

const (
	refundRetryQueue = "refund-retry"
	maxRefundAttempt = 5
)

type CancellationUseCase interface {
	Cancel(ctx context.Context, req CancelRequest) (CancelResponse, error)
	CancelWithOverride(ctx context.Context, req OverrideCancelRequest) (CancelResponse, error)
	OnRefundRetry(ctx context.Context, req RefundRetryRequest) error
}

type cancellationUseCase struct {
	logger               *logrus.Logger
	timeout              time.Duration
	baseURL              string
	refundRetryDelay     time.Duration
	poolRepository       pool.PoolRepository
	policyTierRepository pool.PolicyTierRepository
	settingRepository    pool.SettingRepository
	allocationRepository allocation.AllocationRepository
	paymentRepository    payment.PaymentRepository
	providerRepository   payment.ProviderRepository
	prizeUnitRepository  lottery.PrizeUnitRepository
	admissionCounter     counter.Counter
	publisher            pubsub.Publisher
	tasksClient          gctasks.Client
}

type CancellationUseCaseProperty struct {
	Logger               *logrus.Logger
	Timeout              time.Duration
	BaseURL              string
	RefundRetryDelay     time.Duration
	PoolRepository       pool.PoolRepository
	PolicyTierRepository pool.PolicyTierRepository
	SettingRepository    pool.SettingRepository
	AllocationRepository allocation.AllocationRepository
	PaymentRepository    payment.PaymentRepository
	ProviderRepository   payment.ProviderRepository
	PrizeUnitRepository  lottery.PrizeUnitRepository
	AdmissionCounter     counter.Counter
	Publisher            pubsub.Publisher
	TasksClient          gctasks.Client
}

func NewCancellationUseCase(props CancellationUseCaseProperty) CancellationUseCase {
	return &cancellationUseCase{
		logger:               props.Logger,
		timeout:              props.Timeout,
		baseURL:              props.BaseURL,
		refundRetryDelay:     props.RefundRetryDelay,
		poolRepository:       props.PoolRepository,
		policyTierRepository: props.PolicyTierRepository,
		settingRepository:    props.SettingRepository,
		allocationRepository: props.AllocationRepository,
		paymentRepository:    props.PaymentRepository,
		providerRepository:   props.ProviderRepository,
		prizeUnitRepository:  props.PrizeUnitRepository,
		admissionCounter:     props.AdmissionCounter,
		publisher:            props.Publisher,
		tasksClient:          props.TasksClient,
	}
}

// Cancel implements CancellationUseCase. Members may only cancel their own
// records, and only while the pool's refund schedule still has an open tier.
func (u *cancellationUseCase) Cancel(ctx context.Context, req CancelRequest) (CancelResponse, error) {
	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return CancelResponse{}, err
	}

	return u.cancel(ctx, req.AllocationID, req.Reason, &acc.ID, false)
}

// CancelWithOverride implements CancellationUseCase. The back-office variant
// ignores the cancellability flag and ownership, and refunds in full when no
// tier is open anymore.
func (u *cancellationUseCase) CancelWithOverride(ctx context.Context, req OverrideCancelRequest) (CancelResponse, error) {
	return u.cancel(ctx, req.AllocationID, req.Reason, nil, true)
}

func (u *cancellationUseCase) cancel(ctx context.Context, allocationID, reason string, requesterID *int64, isManualOverride bool) (CancelResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	tx, err := u.allocationRepository.BeginTx(ctx)
	if err != nil {
		return CancelResponse{}, err
	}

	rec, err := u.allocationRepository.FindByIDForUpdate(ctx, allocationID, tx)
	if err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return CancelResponse{}, err
	}

	if requesterID != nil && rec.MemberID != *requesterID {
		u.allocationRepository.Rollback(ctx, tx)
		return CancelResponse{}, errors.New(http.StatusForbidden, status.FORBIDDEN, "the allocation record belongs to another member")
	}

	if rec.CancelledAt != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return CancelResponse{}, errors.New(http.StatusConflict, status.NOT_CANCELLABLE, "the allocation record has already been cancelled")
	}

	if rec.Attended {
		u.allocationRepository.Rollback(ctx, tx)
		return CancelResponse{}, errors.New(http.StatusConflict, status.NOT_CANCELLABLE, "the allocation record has already been attended")
	}

	p, err := u.poolRepository.FindByID(ctx, rec.PoolID, tx)
	if err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return CancelResponse{}, err
	}

	if !p.AllowsCancellation && !isManualOverride {
		u.allocationRepository.Rollback(ctx, tx)
		return CancelResponse{}, errors.New(http.StatusConflict, status.NOT_CANCELLABLE, "the pool does not allow cancellation")
	}

	refundPercentage, err := u.resolveTier(ctx, p, isManualOverride, tx)
	if err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return CancelResponse{}, err
	}

	now := time.Now()

	// Write the refund record before flipping the allocation so a failed
	// insert leaves the booking intact.
	purchase, refundAmount, err := u.prepareRefund(ctx, rec, refundPercentage, now, tx)
	if err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return CancelResponse{}, err
	}

	cancelled := rec
	cancelled.CancelledAt = &now

	if err := u.allocationRepository.MarkCancelled(ctx, rec.ID, cancelled, tx); err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return CancelResponse{}, err
	}

	// Lottery inventory goes back inside the same transaction as the
	// cancellation, so the prize never leaks.
	if p.Kind == pool.KindLottery && rec.UnitID != nil {
		unit, err := u.prizeUnitRepository.FindByID(ctx, *rec.UnitID, tx)
		if err != nil {
			u.allocationRepository.Rollback(ctx, tx)
			return CancelResponse{}, err
		}

		if !unit.NullResult {
			if err := u.prizeUnitRepository.IncrementRemaining(ctx, unit.ID, tx); err != nil {
				u.allocationRepository.Rollback(ctx, tx)
				return CancelResponse{}, err
			}
		}
	}

	if err := u.allocationRepository.CommitTx(ctx, tx); err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return CancelResponse{}, err
	}

	// Seat counters live outside the database, so the release happens after
	// commit. A crash in between over-counts admissions until reconciled.
	if p.Kind == pool.KindOccurrence {
		counterKey := booking.AdmissionCounterKey(p.ID)
		if _, err := u.admissionCounter.Decrement(ctx, counterKey, rec.Quantity); err != nil {
			u.logger.WithContext(ctx).WithError(err).WithField("counterKey", counterKey).Error("unable to release admission on cancellation")
		}
	}

	var refundOrderID string
	if purchase != nil {
		refundOrderID = u.executeRefund(ctx, purchase.refundOrderID, purchase.purchaseOrderID, refundAmount, reason, 1)
	}

	event := AllocationCancelledEvent{
		AllocationID:     rec.ID,
		PoolID:           p.ID,
		PoolTitle:        p.Title,
		MemberID:         rec.MemberID,
		MemberEmail:      rec.MemberEmail,
		RefundPercentage: refundPercentage,
		RefundAmount:     refundAmount,
		RefundOrderID:    refundOrderID,
		CancelledAt:      now,
	}
	eventBuff, _ := json.Marshal(event)
	u.publisher.Publish(ctx, "allocation-cancelled", rec.ID, nil, eventBuff)

	return CancelResponse{
		AllocationID:     rec.ID,
		RefundPercentage: refundPercentage,
		RefundAmount:     refundAmount,
		CancelledAt:      now,
	}, nil
}

func (u *cancellationUseCase) resolveTier(ctx context.Context, p pool.Pool, isManualOverride bool, tx *sql.Tx) (int64, error) {
	tiers, err := u.policyTierRepository.FindManyByPoolID(ctx, p.ID, tx)
	if err != nil {
		return 0, err
	}

	// The system-wide fallback tier only backs participant-initiated
	// cancellations; override cancels on a tierless pool resolve to a full
	// refund below instead.
	if len(tiers) == 0 && !isManualOverride {
		fallback, err := u.settingRepository.FindCancellationFallback(ctx, tx)
		if err != nil {
			if errors.Destruct(err).Status != status.NOT_FOUND {
				return 0, err
			}
		} else {
			tiers = []pool.CancellationPolicyTier{fallback}
		}
	}

	refundPercentage, open := resolveRefundPercentage(tiers, p.StartAt, time.Now())
	if !open {
		if !isManualOverride {
			return 0, errors.New(http.StatusConflict, status.NOT_CANCELLABLE, "the cancellation deadline has passed")
		}
		refundPercentage = 100
	}

	return refundPercentage, nil
}

type refundPlan struct {
	refundOrderID   string
	purchaseOrderID string
}

// prepareRefund writes a pending refund record when the allocation was paid
// for and the tier refunds anything. A missing purchase is not an error; free
// allocations simply carry no money.
func (u *cancellationUseCase) prepareRefund(ctx context.Context, rec allocation.Record, refundPercentage int64, now time.Time, tx *sql.Tx) (*refundPlan, float64, error) {
	if refundPercentage <= 0 {
		return nil, 0, nil
	}

	purchase, err := u.paymentRepository.FindFulfilledPurchaseByAllocation(ctx, rec.ID, tx)
	if err != nil {
		if errors.Destruct(err).Status == status.NOT_FOUND {
			return nil, 0, nil
		}
		return nil, 0, err
	}

	refundAmount := purchase.Amount * float64(refundPercentage) / 100

	refund := payment.Record{
		OrderID:      util.GenerateTimestampWithPrefix("RF"),
		MemberID:     rec.MemberID,
		PoolID:       rec.PoolID,
		AllocationID: &rec.ID,
		Amount:       refundAmount,
		Type:         payment.TypeRefund,
		Status:       payment.StatusPending,
		CreatedAt:    now,
	}

	if err := u.paymentRepository.Save(ctx, refund, tx); err != nil {
		return nil, 0, err
	}

	return &refundPlan{refundOrderID: refund.OrderID, purchaseOrderID: purchase.OrderID}, refundAmount, nil
}

// executeRefund calls the payment provider after the local cancellation has
// committed. Provider failures never undo the cancellation; they are handed
// to the task queue for a delayed retry instead.
func (u *cancellationUseCase) executeRefund(ctx context.Context, refundOrderID, purchaseOrderID string, amount float64, reason string, attempt int64) string {
	_, err := u.providerRepository.RequestRefund(ctx, payment.RefundRequest{
		OrderID: purchaseOrderID,
		Amount:  amount,
		Reason:  reason,
	})
	if err == nil {
		if err := u.paymentRepository.UpdateStatus(ctx, refundOrderID, payment.StatusFulfilled, nil); err != nil {
			u.logger.WithContext(ctx).WithError(err).WithField("refundOrderID", refundOrderID).Error("unable to mark refund record as fulfilled")
		}
		return refundOrderID
	}

	u.logger.WithContext(ctx).WithError(err).WithField("refundOrderID", refundOrderID).Warn("refund request failed, scheduling retry")

	u.scheduleRefundRetry(ctx, RefundRetryRequest{
		RefundOrderID:   refundOrderID,
		PurchaseOrderID: purchaseOrderID,
		Amount:          amount,
		Reason:          reason,
		Attempt:         attempt + 1,
	})

	return refundOrderID
}

func (u *cancellationUseCase) scheduleRefundRetry(ctx context.Context, retry RefundRetryRequest) {
	body, _ := json.Marshal(retry)

	err := u.tasksClient.DeferCreateTaskInDuration(refundRetryQueue, gctasks.Request{
		URL:    fmt.Sprintf("%s/mt-allocation/v1/memberapp/cancellations/on-refund-retry", u.baseURL),
		Method: cloudtaskspb.HttpMethod_POST,
		Header: map[string]string{"Content-Type": "application/json"},
		Body:   body,
	}, u.refundRetryDelay)
	if err != nil {
		u.logger.WithContext(ctx).WithError(err).WithField("refundOrderID", retry.RefundOrderID).Error("unable to schedule refund retry task")
	}
}

// OnRefundRetry implements CancellationUseCase. It is the task-queue callback
// for refunds the provider rejected earlier. After the attempt budget is
// spent the refund record is parked as rejected for manual follow-up.
func (u *cancellationUseCase) OnRefundRetry(ctx context.Context, req RefundRetryRequest) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	_, err := u.providerRepository.RequestRefund(ctx, payment.RefundRequest{
		OrderID: req.PurchaseOrderID,
		Amount:  req.Amount,
		Reason:  req.Reason,
	})
	if err == nil {
		return u.paymentRepository.UpdateStatus(ctx, req.RefundOrderID, payment.StatusFulfilled, nil)
	}

	if req.Attempt >= maxRefundAttempt {
		u.logger.WithContext(ctx).WithError(err).WithField("refundOrderID", req.RefundOrderID).Error("refund retry budget exhausted")
		return u.paymentRepository.UpdateStatus(ctx, req.RefundOrderID, payment.StatusRejected, nil)
	}

	u.scheduleRefundRetry(ctx, RefundRetryRequest{
		RefundOrderID:   req.RefundOrderID,
		PurchaseOrderID: req.PurchaseOrderID,
		Amount:          req.Amount,
		Reason:          req.Reason,
		Attempt:         req.Attempt + 1,
	})

	return nil
}
