package cancellation

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/membertown/mt-allocation/internal/module/memberapp/allocation"
	"github.com/membertown/mt-allocation/internal/module/memberapp/booking"
	"github.com/membertown/mt-allocation/internal/module/memberapp/lottery"
	"github.com/membertown/mt-allocation/internal/module/memberapp/payment"
	"github.com/membertown/mt-allocation/internal/module/memberapp/pool"
	"github.com/membertown/mt-allocation/internal/pkg/session"
	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/gctasks"
	"github.com/membertown/mt-allocation/pkg/status"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPoolRepository struct {
	pools map[string]pool.Pool
}

func (s *stubPoolRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (pool.Pool, error) {
	p, ok := s.pools[ID]
	if !ok {
		return pool.Pool{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "resource pool's properties is not found")
	}
	return p, nil
}

type stubPolicyTierRepository struct {
	tiers []pool.CancellationPolicyTier
}

func (s *stubPolicyTierRepository) FindManyByPoolID(ctx context.Context, poolID string, tx *sql.Tx) ([]pool.CancellationPolicyTier, error) {
	return s.tiers, nil
}

type stubSettingRepository struct {
	fallback *pool.CancellationPolicyTier
}

func (s *stubSettingRepository) FindCancellationFallback(ctx context.Context, tx *sql.Tx) (pool.CancellationPolicyTier, error) {
	if s.fallback == nil {
		return pool.CancellationPolicyTier{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "allocation setting's properties is not found")
	}
	return *s.fallback, nil
}

type stubAllocationRepository struct {
	mu      sync.Mutex
	records []allocation.Record
}

func (s *stubAllocationRepository) BeginTx(ctx context.Context) (*sql.Tx, error) { return nil, nil }

func (s *stubAllocationRepository) CommitTx(ctx context.Context, tx *sql.Tx) error { return nil }

func (s *stubAllocationRepository) Rollback(ctx context.Context, tx *sql.Tx) error { return nil }

func (s *stubAllocationRepository) Save(ctx context.Context, rec allocation.Record, tx *sql.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *stubAllocationRepository) FindByIDForUpdate(ctx context.Context, ID string, tx *sql.Tx) (allocation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == ID {
			return rec, nil
		}
	}
	return allocation.Record{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("allocation record's properties with id '%s' is not found", ID))
}

func (s *stubAllocationRepository) FindManyActiveByMember(ctx context.Context, memberID int64, tx *sql.Tx) ([]allocation.ActiveRecord, error) {
	return nil, nil
}

func (s *stubAllocationRepository) CountActiveByPoolAndMember(ctx context.Context, poolID string, memberID int64, tx *sql.Tx) (int64, error) {
	return 0, nil
}

func (s *stubAllocationRepository) FindMany(ctx context.Context, memberID int64, offset, limit int64, tx *sql.Tx) ([]allocation.Record, error) {
	return nil, nil
}

func (s *stubAllocationRepository) Count(ctx context.Context, memberID int64, tx *sql.Tx) (int64, error) {
	return 0, nil
}

func (s *stubAllocationRepository) MarkCancelled(ctx context.Context, ID string, rec allocation.Record, tx *sql.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.records {
		if s.records[k].ID == ID && s.records[k].CancelledAt == nil {
			s.records[k].CancelledAt = rec.CancelledAt
			return nil
		}
	}
	return errors.New(http.StatusConflict, status.NOT_CANCELLABLE, "allocation record has already been cancelled")
}

type stubPaymentRepository struct {
	mu      sync.Mutex
	records []payment.Record
}

func (s *stubPaymentRepository) FindFulfilledPurchase(ctx context.Context, memberID int64, poolID string, amount float64, tx *sql.Tx) (payment.Record, error) {
	return payment.Record{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "payment record's properties is not found")
}

func (s *stubPaymentRepository) FindFulfilledPurchaseByAllocation(ctx context.Context, allocationID string, tx *sql.Tx) (payment.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.AllocationID != nil && *rec.AllocationID == allocationID && rec.Type == payment.TypePurchase && rec.Status == payment.StatusFulfilled {
			return rec, nil
		}
	}
	return payment.Record{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "payment record's properties is not found")
}

func (s *stubPaymentRepository) Save(ctx context.Context, p payment.Record, tx *sql.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, p)
	return nil
}

func (s *stubPaymentRepository) LinkAllocation(ctx context.Context, orderID string, allocationID string, tx *sql.Tx) error {
	return nil
}

func (s *stubPaymentRepository) UpdateStatus(ctx context.Context, orderID string, paymentStatus string, tx *sql.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.records {
		if s.records[k].OrderID == orderID {
			s.records[k].Status = paymentStatus
			return nil
		}
	}
	return errors.New(http.StatusNotFound, status.NOT_FOUND, "payment record's properties is not found")
}

func (s *stubPaymentRepository) refundRecord() *payment.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.records {
		if s.records[k].Type == payment.TypeRefund {
			return &s.records[k]
		}
	}
	return nil
}

type stubProviderRepository struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

func (s *stubProviderRepository) RequestRefund(ctx context.Context, req payment.RefundRequest) (payment.RefundResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return payment.RefundResponse{}, errors.New(http.StatusServiceUnavailable, status.SERVICE_UNAVAILABLE, "the payment provider is unreachable")
	}
	return payment.RefundResponse{OrderID: req.OrderID, RefundAmount: req.Amount}, nil
}

type stubPrizeUnitRepository struct {
	mu    sync.Mutex
	units map[string]*lottery.PrizeUnit
}

func (s *stubPrizeUnitRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (lottery.PrizeUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unit, ok := s.units[ID]
	if !ok {
		return lottery.PrizeUnit{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "prize unit's properties is not found")
	}
	return *unit, nil
}

func (s *stubPrizeUnitRepository) FindManyAvailableByPoolID(ctx context.Context, poolID string, tx *sql.Tx) ([]lottery.PrizeUnit, error) {
	return nil, nil
}

func (s *stubPrizeUnitRepository) DecrementRemaining(ctx context.Context, ID string, tx *sql.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[ID].RemainingQuantity--
	return nil
}

func (s *stubPrizeUnitRepository) IncrementRemaining(ctx context.Context, ID string, tx *sql.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[ID].RemainingQuantity++
	return nil
}

type stubCounter struct {
	mu     sync.Mutex
	values map[string]int64
}

func (s *stubCounter) Increment(ctx context.Context, key string, by int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = map[string]int64{}
	}
	s.values[key] += by
	return s.values[key], nil
}

func (s *stubCounter) Decrement(ctx context.Context, key string, by int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = map[string]int64{}
	}
	s.values[key] -= by
	return s.values[key], nil
}

type stubPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (s *stubPublisher) Publish(ctx context.Context, topic string, key string, headers map[string]string, message []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, topic)
}

func (s *stubPublisher) Close() {}

type stubTasksClient struct {
	mu       sync.Mutex
	deferred []gctasks.Request
}

func (s *stubTasksClient) CreateTask(queueID string, request gctasks.Request) error {
	return nil
}

func (s *stubTasksClient) DeferCreateTaskInDuration(queueID string, request gctasks.Request, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deferred = append(s.deferred, request)
	return nil
}

func (s *stubTasksClient) DeferCreateTaskInTime(queueID string, request gctasks.Request, schedule time.Time) error {
	return nil
}

func (s *stubTasksClient) Close() error { return nil }

type cancellationFixture struct {
	useCase        CancellationUseCase
	allocationRepo *stubAllocationRepository
	paymentRepo    *stubPaymentRepository
	provider       *stubProviderRepository
	prizeUnitRepo  *stubPrizeUnitRepository
	counter        *stubCounter
	publisher      *stubPublisher
	tasks          *stubTasksClient
}

func newCancellationFixture(p pool.Pool, tiers []pool.CancellationPolicyTier, fallback *pool.CancellationPolicyTier) *cancellationFixture {
	f := &cancellationFixture{
		allocationRepo: &stubAllocationRepository{},
		paymentRepo:    &stubPaymentRepository{},
		provider:       &stubProviderRepository{},
		prizeUnitRepo:  &stubPrizeUnitRepository{units: map[string]*lottery.PrizeUnit{}},
		counter:        &stubCounter{},
		publisher:      &stubPublisher{},
		tasks:          &stubTasksClient{},
	}

	f.useCase = NewCancellationUseCase(CancellationUseCaseProperty{
		Logger:               logrus.New(),
		Timeout:              5 * time.Second,
		BaseURL:              "http://localhost:8080",
		RefundRetryDelay:     time.Minute,
		PoolRepository:       &stubPoolRepository{pools: map[string]pool.Pool{p.ID: p}},
		PolicyTierRepository: &stubPolicyTierRepository{tiers: tiers},
		SettingRepository:    &stubSettingRepository{fallback: fallback},
		AllocationRepository: f.allocationRepo,
		PaymentRepository:    f.paymentRepo,
		ProviderRepository:   f.provider,
		PrizeUnitRepository:  f.prizeUnitRepo,
		AdmissionCounter:     f.counter,
		Publisher:            f.publisher,
		TasksClient:          f.tasks,
	})

	return f
}

func memberContext(id int64) context.Context {
	return session.ContextWithAccount(context.Background(), session.Account{
		ID:    id,
		Name:  "Member One",
		Email: "member.one@example.com",
		Role:  session.RoleMember,
	})
}

func cancellablePool() pool.Pool {
	return pool.Pool{
		ID:                 "POOL-1",
		Kind:               pool.KindOccurrence,
		Title:              "yoga class",
		StartAt:            time.Now().Add(5 * 24 * time.Hour),
		EndAt:              time.Now().Add(5*24*time.Hour + 2*time.Hour),
		TotalCapacity:      10,
		AllowsCancellation: true,
	}
}

func refundSchedule() []pool.CancellationPolicyTier {
	return []pool.CancellationPolicyTier{
		{PoolID: "POOL-1", Day: 7, RefundPercentage: 100},
		{PoolID: "POOL-1", Day: 3, RefundPercentage: 50},
		{PoolID: "POOL-1", Day: 1, RefundPercentage: 0},
	}
}

func (f *cancellationFixture) seedBooking(quantity int64, paidAmount float64) allocation.Record {
	rec := allocation.Record{
		ID:          "BK-1",
		PoolID:      "POOL-1",
		MemberID:    11,
		MemberName:  "Member One",
		MemberEmail: "member.one@example.com",
		Quantity:    quantity,
		CreatedAt:   time.Now().Add(-time.Hour),
	}
	f.allocationRepo.records = append(f.allocationRepo.records, rec)
	f.counter.values = map[string]int64{booking.AdmissionCounterKey("POOL-1"): quantity}

	if paidAmount > 0 {
		allocationID := rec.ID
		f.paymentRepo.records = append(f.paymentRepo.records, payment.Record{
			OrderID:      "PY-1",
			MemberID:     11,
			PoolID:       "POOL-1",
			AllocationID: &allocationID,
			Amount:       paidAmount,
			Type:         payment.TypePurchase,
			Status:       payment.StatusFulfilled,
		})
	}

	return rec
}

func TestCancellationUseCase_Cancel(t *testing.T) {
	t.Run("a cancellation five days out lands on the fifty percent tier", func(t *testing.T) {
		f := newCancellationFixture(cancellablePool(), refundSchedule(), nil)
		f.seedBooking(2, 200000)

		resp, err := f.useCase.Cancel(memberContext(11), CancelRequest{AllocationID: "BK-1", Reason: "schedule change"})
		require.NoError(t, err)

		assert.Equal(t, int64(50), resp.RefundPercentage)
		assert.Equal(t, float64(100000), resp.RefundAmount)
		assert.NotNil(t, f.allocationRepo.records[0].CancelledAt)

		refund := f.paymentRepo.refundRecord()
		require.NotNil(t, refund)
		assert.Equal(t, payment.StatusFulfilled, refund.Status)
		assert.Equal(t, float64(100000), refund.Amount)

		assert.Zero(t, f.counter.values[booking.AdmissionCounterKey("POOL-1")])
		assert.Equal(t, []string{"allocation-cancelled"}, f.publisher.topics)
	})

	t.Run("a free booking cancels without a refund record", func(t *testing.T) {
		f := newCancellationFixture(cancellablePool(), refundSchedule(), nil)
		f.seedBooking(1, 0)

		resp, err := f.useCase.Cancel(memberContext(11), CancelRequest{AllocationID: "BK-1"})
		require.NoError(t, err)

		assert.Zero(t, resp.RefundAmount)
		assert.Nil(t, f.paymentRepo.refundRecord())
		assert.Zero(t, f.provider.calls)
	})

	t.Run("the zero tier cancels the booking but refunds nothing", func(t *testing.T) {
		late := cancellablePool()
		late.StartAt = time.Now().Add(36 * time.Hour)
		late.EndAt = late.StartAt.Add(2 * time.Hour)

		f := newCancellationFixture(late, refundSchedule(), nil)
		f.seedBooking(1, 200000)

		resp, err := f.useCase.Cancel(memberContext(11), CancelRequest{AllocationID: "BK-1"})
		require.NoError(t, err)

		assert.Zero(t, resp.RefundPercentage)
		assert.Zero(t, resp.RefundAmount)
		assert.Nil(t, f.paymentRepo.refundRecord())
		assert.NotNil(t, f.allocationRepo.records[0].CancelledAt)
	})

	t.Run("a cancellation past every tier is rejected", func(t *testing.T) {
		imminent := cancellablePool()
		imminent.StartAt = time.Now().Add(12 * time.Hour)
		imminent.EndAt = imminent.StartAt.Add(2 * time.Hour)

		f := newCancellationFixture(imminent, refundSchedule(), nil)
		f.seedBooking(1, 200000)

		_, err := f.useCase.Cancel(memberContext(11), CancelRequest{AllocationID: "BK-1"})
		require.Error(t, err)

		assert.Equal(t, status.NOT_CANCELLABLE, errors.Destruct(err).Status)
		assert.Nil(t, f.allocationRepo.records[0].CancelledAt)
	})

	t.Run("the fallback schedule applies when the pool has no tiers", func(t *testing.T) {
		fallback := &pool.CancellationPolicyTier{Day: 2, RefundPercentage: 80}

		f := newCancellationFixture(cancellablePool(), nil, fallback)
		f.seedBooking(1, 100000)

		resp, err := f.useCase.Cancel(memberContext(11), CancelRequest{AllocationID: "BK-1"})
		require.NoError(t, err)

		assert.Equal(t, int64(80), resp.RefundPercentage)
		assert.Equal(t, float64(80000), resp.RefundAmount)
	})

	t.Run("another member's booking cannot be cancelled", func(t *testing.T) {
		f := newCancellationFixture(cancellablePool(), refundSchedule(), nil)
		f.seedBooking(1, 0)

		_, err := f.useCase.Cancel(memberContext(99), CancelRequest{AllocationID: "BK-1"})
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, errors.Destruct(err).HTTPStatusCode)
	})

	t.Run("a cancelled booking cannot be cancelled twice", func(t *testing.T) {
		f := newCancellationFixture(cancellablePool(), refundSchedule(), nil)
		f.seedBooking(1, 0)

		_, err := f.useCase.Cancel(memberContext(11), CancelRequest{AllocationID: "BK-1"})
		require.NoError(t, err)

		_, err = f.useCase.Cancel(memberContext(11), CancelRequest{AllocationID: "BK-1"})
		require.Error(t, err)
		assert.Equal(t, status.NOT_CANCELLABLE, errors.Destruct(err).Status)
	})

	t.Run("an attended booking cannot be cancelled", func(t *testing.T) {
		f := newCancellationFixture(cancellablePool(), refundSchedule(), nil)
		f.seedBooking(1, 0)
		f.allocationRepo.records[0].Attended = true

		_, err := f.useCase.Cancel(memberContext(11), CancelRequest{AllocationID: "BK-1"})
		require.Error(t, err)
		assert.Equal(t, status.NOT_CANCELLABLE, errors.Destruct(err).Status)
	})

	t.Run("a pool that disallows cancellation rejects members", func(t *testing.T) {
		locked := cancellablePool()
		locked.AllowsCancellation = false

		f := newCancellationFixture(locked, refundSchedule(), nil)
		f.seedBooking(1, 0)

		_, err := f.useCase.Cancel(memberContext(11), CancelRequest{AllocationID: "BK-1"})
		require.Error(t, err)
		assert.Equal(t, status.NOT_CANCELLABLE, errors.Destruct(err).Status)
	})

	t.Run("a provider failure keeps the cancellation and schedules a retry", func(t *testing.T) {
		f := newCancellationFixture(cancellablePool(), refundSchedule(), nil)
		f.seedBooking(1, 200000)
		f.provider.fail = true

		resp, err := f.useCase.Cancel(memberContext(11), CancelRequest{AllocationID: "BK-1", Reason: "schedule change"})
		require.NoError(t, err)

		assert.Equal(t, float64(100000), resp.RefundAmount)
		assert.NotNil(t, f.allocationRepo.records[0].CancelledAt)

		refund := f.paymentRepo.refundRecord()
		require.NotNil(t, refund)
		assert.Equal(t, payment.StatusPending, refund.Status)

		require.Len(t, f.tasks.deferred, 1)
		assert.Contains(t, f.tasks.deferred[0].URL, "/mt-allocation/v1/memberapp/cancellations/on-refund-retry")
	})
}

func TestCancellationUseCase_Cancel_Lottery(t *testing.T) {
	lotteryPool := pool.Pool{
		ID:                 "POOL-L",
		Kind:               pool.KindLottery,
		Title:              "year-end lottery",
		StartAt:            time.Now().Add(5 * 24 * time.Hour),
		EndAt:              time.Now().Add(6 * 24 * time.Hour),
		AllowsCancellation: true,
	}
	tiers := []pool.CancellationPolicyTier{{PoolID: "POOL-L", Day: 1, RefundPercentage: 0}}

	seed := func(f *cancellationFixture, unitID string, nullResult bool) {
		f.prizeUnitRepo.units[unitID] = &lottery.PrizeUnit{
			ID:                unitID,
			PoolID:            "POOL-L",
			Weight:            1,
			RemainingQuantity: 4,
			NullResult:        nullResult,
		}
		f.allocationRepo.records = append(f.allocationRepo.records, allocation.Record{
			ID:        "AL-1",
			PoolID:    "POOL-L",
			UnitID:    &unitID,
			MemberID:  11,
			Quantity:  1,
			CreatedAt: time.Now().Add(-time.Hour),
		})
	}

	t.Run("cancelling a winning draw restores the prize unit", func(t *testing.T) {
		f := newCancellationFixture(lotteryPool, tiers, nil)
		seed(f, "PU-1", false)

		_, err := f.useCase.Cancel(memberContext(11), CancelRequest{AllocationID: "AL-1"})
		require.NoError(t, err)

		assert.Equal(t, int64(5), f.prizeUnitRepo.units["PU-1"].RemainingQuantity)
		assert.Zero(t, f.counter.values[booking.AdmissionCounterKey("POOL-L")])
	})

	t.Run("cancelling a null-result draw leaves inventory untouched", func(t *testing.T) {
		f := newCancellationFixture(lotteryPool, tiers, nil)
		seed(f, "PU-NULL", true)

		_, err := f.useCase.Cancel(memberContext(11), CancelRequest{AllocationID: "AL-1"})
		require.NoError(t, err)

		assert.Equal(t, int64(4), f.prizeUnitRepo.units["PU-NULL"].RemainingQuantity)
	})
}

func TestCancellationUseCase_CancelWithOverride(t *testing.T) {
	t.Run("the override ignores the cancellability flag and ownership", func(t *testing.T) {
		locked := cancellablePool()
		locked.AllowsCancellation = false

		f := newCancellationFixture(locked, refundSchedule(), nil)
		f.seedBooking(1, 0)

		_, err := f.useCase.CancelWithOverride(context.Background(), OverrideCancelRequest{AllocationID: "BK-1", Reason: "venue closed"})
		require.NoError(t, err)
		assert.NotNil(t, f.allocationRepo.records[0].CancelledAt)
	})

	t.Run("the override never falls back to the system-wide schedule", func(t *testing.T) {
		fallback := &pool.CancellationPolicyTier{Day: 2, RefundPercentage: 80}

		f := newCancellationFixture(cancellablePool(), nil, fallback)
		f.seedBooking(1, 100000)

		resp, err := f.useCase.CancelWithOverride(context.Background(), OverrideCancelRequest{AllocationID: "BK-1", Reason: "venue closed"})
		require.NoError(t, err)

		assert.Equal(t, int64(100), resp.RefundPercentage)
		assert.Equal(t, float64(100000), resp.RefundAmount)
	})

	t.Run("the override refunds in full when every tier has closed", func(t *testing.T) {
		imminent := cancellablePool()
		imminent.StartAt = time.Now().Add(12 * time.Hour)
		imminent.EndAt = imminent.StartAt.Add(2 * time.Hour)

		f := newCancellationFixture(imminent, refundSchedule(), nil)
		f.seedBooking(1, 200000)

		resp, err := f.useCase.CancelWithOverride(context.Background(), OverrideCancelRequest{AllocationID: "BK-1", Reason: "venue closed"})
		require.NoError(t, err)

		assert.Equal(t, int64(100), resp.RefundPercentage)
		assert.Equal(t, float64(200000), resp.RefundAmount)
	})
}

func TestCancellationUseCase_OnRefundRetry(t *testing.T) {
	retry := RefundRetryRequest{
		RefundOrderID:   "RF-1",
		PurchaseOrderID: "PY-1",
		Amount:          100000,
		Reason:          "schedule change",
		Attempt:         2,
	}

	seedRefund := func(f *cancellationFixture) {
		f.paymentRepo.records = append(f.paymentRepo.records, payment.Record{
			OrderID: "RF-1",
			Type:    payment.TypeRefund,
			Status:  payment.StatusPending,
			Amount:  100000,
		})
	}

	t.Run("a successful retry fulfills the refund record", func(t *testing.T) {
		f := newCancellationFixture(cancellablePool(), nil, nil)
		seedRefund(f)

		require.NoError(t, f.useCase.OnRefundRetry(context.Background(), retry))
		assert.Equal(t, payment.StatusFulfilled, f.paymentRepo.refundRecord().Status)
	})

	t.Run("a failed retry below the budget is rescheduled", func(t *testing.T) {
		f := newCancellationFixture(cancellablePool(), nil, nil)
		seedRefund(f)
		f.provider.fail = true

		require.NoError(t, f.useCase.OnRefundRetry(context.Background(), retry))

		assert.Equal(t, payment.StatusPending, f.paymentRepo.refundRecord().Status)
		assert.Len(t, f.tasks.deferred, 1)
	})

	t.Run("an exhausted budget parks the refund as rejected", func(t *testing.T) {
		f := newCancellationFixture(cancellablePool(), nil, nil)
		seedRefund(f)
		f.provider.fail = true

		spent := retry
		spent.Attempt = maxRefundAttempt

		require.NoError(t, f.useCase.OnRefundRetry(context.Background(), spent))

		assert.Equal(t, payment.StatusRejected, f.paymentRepo.refundRecord().Status)
		assert.Empty(t, f.tasks.deferred)
	})
}
