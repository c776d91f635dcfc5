package lottery

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/membertown/mt-allocation/internal/module/memberapp/allocation"
	"github.com/membertown/mt-allocation/internal/module/memberapp/pool"
	"github.com/membertown/mt-allocation/internal/pkg/session"
	"github.com/membertown/mt-allocation/internal/pkg/util"
	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/pubsub"
	"github.com/membertown/mt-allocation/pkg/status"
	"github.com/sirupsen/logrus"
)

type LotteryUseCase interface {
	Draw(ctx context.Context, req DrawRequest) (DrawResponse, error)
	GetAvailableUnits(ctx context.Context, req GetAvailableUnitsRequest) (GetAvailableUnitsResponse, error)
}

type lotteryUseCase struct {
	logger               *logrus.Logger
	timeout              time.Duration
	poolRepository       pool.PoolRepository
	prizeUnitRepository  PrizeUnitRepository
	allocationRepository allocation.AllocationRepository
	publisher            pubsub.Publisher
	randMu               sync.Mutex
	rand                 *rand.Rand
}

type LotteryUseCaseProperty struct {
	Logger               *logrus.Logger
	Timeout              time.Duration
	PoolRepository       pool.PoolRepository
	PrizeUnitRepository  PrizeUnitRepository
	AllocationRepository allocation.AllocationRepository
	Publisher            pubsub.Publisher
	Rand                 *rand.Rand
}

func NewLotteryUseCase(props LotteryUseCaseProperty) LotteryUseCase {
	rng := props.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &lotteryUseCase{
		logger:               props.Logger,
		timeout:              props.Timeout,
		poolRepository:       props.PoolRepository,
		prizeUnitRepository:  props.PrizeUnitRepository,
		allocationRepository: props.AllocationRepository,
		publisher:            props.Publisher,
		rand:                 rng,
	}
}

func (u *lotteryUseCase) drawValue() float64 {
	u.randMu.Lock()
	defer u.randMu.Unlock()

	return u.rand.Float64()
}

// Draw implements LotteryUseCase. The uniqueness check, the conditional
// inventory decrement and the ledger insert all ride the same transaction, so
// a failure at any step leaves no partial allocation behind.
func (u *lotteryUseCase) Draw(ctx context.Context, req DrawRequest) (DrawResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return DrawResponse{}, err
	}

	tx, err := u.allocationRepository.BeginTx(ctx)
	if err != nil {
		return DrawResponse{}, err
	}

	p, err := u.poolRepository.FindByID(ctx, req.PoolID, tx)
	if err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return DrawResponse{}, err
	}

	if p.Kind != pool.KindLottery {
		u.allocationRepository.Rollback(ctx, tx)
		return DrawResponse{}, errors.New(http.StatusBadRequest, status.BAD_REQUEST, "the pool is not a lottery")
	}

	now := time.Now()
	if now.Before(p.StartAt) || now.After(p.EndAt) {
		u.allocationRepository.Rollback(ctx, tx)
		return DrawResponse{}, errors.New(http.StatusBadRequest, status.INVALID_REGISTRATION_TIME, "the lottery is not open at this time")
	}

	count, err := u.allocationRepository.CountActiveByPoolAndMember(ctx, p.ID, acc.ID, tx)
	if err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return DrawResponse{}, err
	}

	if count > 0 {
		u.allocationRepository.Rollback(ctx, tx)
		return DrawResponse{}, errors.New(http.StatusConflict, status.ALREADY_PARTICIPATED, "you have already joined this lottery")
	}

	units, err := u.prizeUnitRepository.FindManyAvailableByPoolID(ctx, p.ID, tx)
	if err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return DrawResponse{}, err
	}

	if len(units) == 0 {
		u.allocationRepository.Rollback(ctx, tx)
		return DrawResponse{}, errors.New(http.StatusConflict, status.EXHAUSTED, "all prizes have been drawn")
	}

	unit, err := chooseUnit(units, u.drawValue())
	if err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return DrawResponse{}, err
	}

	// A null-result draw records participation without consuming inventory.
	if !unit.NullResult {
		if err := u.prizeUnitRepository.DecrementRemaining(ctx, unit.ID, tx); err != nil {
			u.allocationRepository.Rollback(ctx, tx)
			return DrawResponse{}, err
		}
	}

	unitID := unit.ID
	rec := allocation.Record{
		ID:          util.GenerateTimestampWithPrefix("AL"),
		PoolID:      p.ID,
		UnitID:      &unitID,
		MemberID:    acc.ID,
		MemberName:  acc.Name,
		MemberEmail: acc.Email,
		Quantity:    1,
		CreatedAt:   now,
	}

	if err := u.allocationRepository.Save(ctx, rec, tx); err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return DrawResponse{}, err
	}

	if err := u.allocationRepository.CommitTx(ctx, tx); err != nil {
		u.allocationRepository.Rollback(ctx, tx)
		return DrawResponse{}, err
	}

	event := LotteryDrawnEvent{
		AllocationID: rec.ID,
		PoolID:       p.ID,
		UnitID:       unit.ID,
		UnitName:     unit.Name,
		NullResult:   unit.NullResult,
		MemberID:     acc.ID,
		MemberEmail:  acc.Email,
		DrawnAt:      now,
	}
	eventBuff, _ := json.Marshal(event)
	u.publisher.Publish(ctx, "lottery-drawn", rec.ID, nil, eventBuff)

	resp := DrawResponse{}
	resp.PopulateFromEntities(rec, unit)

	return resp, nil
}

// GetAvailableUnits implements LotteryUseCase.
func (u *lotteryUseCase) GetAvailableUnits(ctx context.Context, req GetAvailableUnitsRequest) (GetAvailableUnitsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	p, err := u.poolRepository.FindByID(ctx, req.PoolID, nil)
	if err != nil {
		return GetAvailableUnitsResponse{}, err
	}

	units, err := u.prizeUnitRepository.FindManyAvailableByPoolID(ctx, p.ID, nil)
	if err != nil {
		return GetAvailableUnitsResponse{}, err
	}

	resp := make(GetAvailableUnitsResponse, len(units))
	for k, unit := range units {
		resp[k] = PrizeUnitResponse{
			ID:                unit.ID,
			PoolID:            unit.PoolID,
			Name:              unit.Name,
			Weight:            unit.Weight,
			RemainingQuantity: unit.RemainingQuantity,
			NullResult:        unit.NullResult,
		}
	}

	return resp, nil
}
