package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/membertown/mt-allocation/internal/module/memberapp/allocation"
	"github.com/membertown/mt-allocation/internal/module/memberapp/payment"
	"github.com/membertown/mt-allocation/internal/module/memberapp/pool"
	"github.com/membertown/mt-allocation/internal/pkg/counter"
	"github.com/membertown/mt-allocation/internal/pkg/session"
	"github.com/membertown/mt-allocation/internal/pkg/util"
	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/pubsub"
	"github.com/membertown/mt-allocation/pkg/status"
	"github.com/sirupsen/logrus"
)

type BookingUseCase interface {
	Reserve(ctx context.Context, req ReserveRequest) (ReserveResponse, error)
	ReserveForMember(ctx context.Context, req OverrideReserveRequest) (ReserveResponse, error)
	GetActiveAllocations(ctx context.Context, req GetActiveAllocationsRequest) (GetActiveAllocationsResponse, error)
	GetManyAllocation(ctx context.Context, req GetManyAllocationRequest) (GetManyAllocationResponse, error)
}

type bookingUseCase struct {
	logger               *logrus.Logger
	timeout              time.Duration
	deadlineOffset       time.Duration
	poolRepository       pool.PoolRepository
	allocationRepository allocation.AllocationRepository
	paymentRepository    payment.PaymentRepository
	admissionCounter     counter.Counter
	publisher            pubsub.Publisher
}

type BookingUseCaseProperty struct {
	Logger               *logrus.Logger
	Timeout              time.Duration
	DeadlineOffset       time.Duration
	PoolRepository       pool.PoolRepository
	AllocationRepository allocation.AllocationRepository
	PaymentRepository    payment.PaymentRepository
	AdmissionCounter     counter.Counter
	Publisher            pubsub.Publisher
}

func NewBookingUseCase(props BookingUseCaseProperty) BookingUseCase {
	return &bookingUseCase{
		logger:               props.Logger,
		timeout:              props.Timeout,
		deadlineOffset:       props.DeadlineOffset,
		poolRepository:       props.PoolRepository,
		allocationRepository: props.AllocationRepository,
		paymentRepository:    props.PaymentRepository,
		admissionCounter:     props.AdmissionCounter,
		publisher:            props.Publisher,
	}
}

// AdmissionCounterKey is the counter-service key holding the number of
// admitted seats for a pool.
func AdmissionCounterKey(poolID string) string {
	return fmt.Sprintf("pool:%s:admissions", poolID)
}

// Reserve implements BookingUseCase.
func (u *bookingUseCase) Reserve(ctx context.Context, req ReserveRequest) (ReserveResponse, error) {
	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return ReserveResponse{}, err
	}

	return u.reserve(ctx, acc, req.PoolID, req.Quantity, false)
}

// ReserveForMember implements BookingUseCase. Back-office manual bookings
// skip the deadline and capacity gates but still run the remaining checks.
func (u *bookingUseCase) ReserveForMember(ctx context.Context, req OverrideReserveRequest) (ReserveResponse, error) {
	acc := session.Account{
		ID:    req.MemberID,
		Name:  req.MemberName,
		Email: req.MemberEmail,
	}

	return u.reserve(ctx, acc, req.PoolID, req.Quantity, true)
}

func (u *bookingUseCase) deadlineFor(p pool.Pool) time.Duration {
	if p.DeadlineOffsetMinutes != nil {
		return time.Duration(*p.DeadlineOffsetMinutes) * time.Minute
	}

	return u.deadlineOffset
}

func (u *bookingUseCase) reserve(ctx context.Context, acc session.Account, poolID string, quantity int64, isManualOverride bool) (ReserveResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	if quantity < 1 {
		quantity = 1
	}

	tx, err := u.allocationRepository.BeginTx(ctx)
	if err != nil {
		return ReserveResponse{}, err
	}

	p, err := u.poolRepository.FindByID(ctx, poolID, tx)
	if err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return ReserveResponse{}, err
	}

	if p.Kind != pool.KindOccurrence {
		u.allocationRepository.Rollback(ctx, tx)
		return ReserveResponse{}, errors.New(http.StatusBadRequest, status.BAD_REQUEST, "the pool is not a bookable occurrence")
	}

	now := time.Now()

	// 1. Window check. Date-scoped occurrences span whole days and stay
	// bookable after their first slice has begun; everything else closes at
	// start.
	if !p.DateScoped && now.After(p.StartAt) {
		u.allocationRepository.Rollback(ctx, tx)
		return ReserveResponse{}, errors.New(http.StatusBadRequest, status.INVALID_REGISTRATION_TIME, "the occurrence has already started")
	}
	if p.RegistrationOpenAt != nil && now.Before(*p.RegistrationOpenAt) {
		u.allocationRepository.Rollback(ctx, tx)
		return ReserveResponse{}, errors.New(http.StatusBadRequest, status.INVALID_REGISTRATION_TIME, "registration has not opened yet")
	}
	if p.RegistrationCloseAt != nil && now.After(*p.RegistrationCloseAt) {
		u.allocationRepository.Rollback(ctx, tx)
		return ReserveResponse{}, errors.New(http.StatusBadRequest, status.INVALID_REGISTRATION_TIME, "registration has closed")
	}

	// 2. Deadline check.
	if !isManualOverride {
		if offset := u.deadlineFor(p); offset > 0 && now.After(p.StartAt.Add(-offset)) {
			u.allocationRepository.Rollback(ctx, tx)
			return ReserveResponse{}, errors.New(http.StatusBadRequest, status.DEADLINE_PASSED, "the registration deadline has passed")
		}
	}

	// 3. Payment gate.
	var paymentOrderID *string
	if p.Fee > 0 {
		purchase, err := u.paymentRepository.FindFulfilledPurchase(ctx, acc.ID, p.ID, p.Fee, tx)
		if err != nil {
			u.allocationRepository.Rollback(ctx, tx)
			if errors.Destruct(err).Status == status.NOT_FOUND {
				return ReserveResponse{}, errors.New(http.StatusPaymentRequired, status.PAYMENT_REQUIRED, "a fulfilled payment is required before booking")
			}
			return ReserveResponse{}, err
		}
		paymentOrderID = &purchase.OrderID
	}

	// 4. Conflict check.
	existing, err := u.allocationRepository.FindManyActiveByMember(ctx, acc.ID, tx)
	if err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return ReserveResponse{}, err
	}

	if HasConflict(p, existing) {
		u.allocationRepository.Rollback(ctx, tx)
		return ReserveResponse{}, errors.New(http.StatusConflict, status.SCHEDULE_CONFLICT, "the booking overlaps another active booking")
	}

	// 5. Capacity reservation against the counter service. Every exit past
	// this point must give the reserved seats back.
	counterKey := AdmissionCounterKey(p.ID)
	admitted, err := u.admissionCounter.Increment(ctx, counterKey, quantity)
	if err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return ReserveResponse{}, err
	}

	if admitted > p.TotalCapacity && !isManualOverride {
		u.releaseAdmission(ctx, counterKey, quantity)
		u.allocationRepository.Rollback(ctx, tx)
		return ReserveResponse{}, errors.New(http.StatusConflict, status.CAPACITY_EXCEEDED, "the occurrence is fully booked")
	}

	// 6. Record creation.
	rec := allocation.Record{
		ID:             util.GenerateTimestampWithPrefix("BK"),
		PoolID:         p.ID,
		MemberID:       acc.ID,
		MemberName:     acc.Name,
		MemberEmail:    acc.Email,
		Quantity:       quantity,
		PaymentOrderID: paymentOrderID,
		CreatedAt:      now,
	}

	if err := u.allocationRepository.Save(ctx, rec, tx); err != nil {
		u.releaseAdmission(ctx, counterKey, quantity)
		u.allocationRepository.Rollback(ctx, tx)
		return ReserveResponse{}, err
	}

	if paymentOrderID != nil {
		if err := u.paymentRepository.LinkAllocation(ctx, *paymentOrderID, rec.ID, tx); err != nil {
			u.releaseAdmission(ctx, counterKey, quantity)
			u.allocationRepository.Rollback(ctx, tx)
			return ReserveResponse{}, err
		}
	}

	if err := u.allocationRepository.CommitTx(ctx, tx); err != nil {
		u.releaseAdmission(ctx, counterKey, quantity)
		u.allocationRepository.Rollback(ctx, tx)
		return ReserveResponse{}, err
	}

	event := AllocationCreatedEvent{
		AllocationID: rec.ID,
		PoolID:       p.ID,
		PoolTitle:    p.Title,
		MemberID:     acc.ID,
		MemberEmail:  acc.Email,
		Quantity:     quantity,
		CreatedAt:    now,
	}
	eventBuff, _ := json.Marshal(event)
	u.publisher.Publish(ctx, "allocation-created", rec.ID, nil, eventBuff)

	resp := ReserveResponse{}
	resp.PopulateFromEntities(rec, p)

	return resp, nil
}

func (u *bookingUseCase) releaseAdmission(ctx context.Context, counterKey string, quantity int64) {
	if _, err := u.admissionCounter.Decrement(ctx, counterKey, quantity); err != nil {
		u.logger.WithContext(ctx).WithError(err).WithField("counterKey", counterKey).Error("unable to release reserved admission")
	}
}

// GetActiveAllocations implements BookingUseCase.
func (u *bookingUseCase) GetActiveAllocations(ctx context.Context, req GetActiveAllocationsRequest) (GetActiveAllocationsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return GetActiveAllocationsResponse{}, err
	}

	records, err := u.allocationRepository.FindManyActiveByMember(ctx, acc.ID, nil)
	if err != nil {
		return GetActiveAllocationsResponse{}, err
	}

	resp := make(GetActiveAllocationsResponse, 0, len(records))
	for _, rec := range records {
		if req.PoolID != "" && rec.PoolID != req.PoolID {
			continue
		}

		item := ActiveAllocationResponse{}
		item.PopulateFromEntity(rec)
		resp = append(resp, item)
	}

	return resp, nil
}

// GetManyAllocation implements BookingUseCase.
func (u *bookingUseCase) GetManyAllocation(ctx context.Context, req GetManyAllocationRequest) (GetManyAllocationResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return GetManyAllocationResponse{}, err
	}

	offset := (req.Page - 1) * req.Size

	records, err := u.allocationRepository.FindMany(ctx, acc.ID, offset, req.Size, nil)
	if err != nil {
		return GetManyAllocationResponse{}, err
	}

	resp := make(GetManyAllocationResponse, len(records))
	for k, rec := range records {
		item := AllocationResponse{}
		item.PopulateFromEntity(rec)
		resp[k] = item
	}

	return resp, nil
}
