package lottery

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/status"
	"github.com/sirupsen/logrus"
)

type PrizeUnitRepository interface {
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (PrizeUnit, error)
	FindManyAvailableByPoolID(ctx context.Context, poolID string, tx *sql.Tx) ([]PrizeUnit, error)
	DecrementRemaining(ctx context.Context, ID string, tx *sql.Tx) error
	IncrementRemaining(ctx context.Context, ID string, tx *sql.Tx) error
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type prizeUnitRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewPrizeUnitRepository(logger *logrus.Logger, db *sql.DB) PrizeUnitRepository {
	return &prizeUnitRepository{
		logger: logger,
		db:     db,
	}
}

// FindByID implements PrizeUnitRepository.
func (r *prizeUnitRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (PrizeUnit, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, pool_id, name, weight, remaining_quantity, null_result
		FROM prize_unit
		WHERE
			id = $1
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return PrizeUnit{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting prize unit's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ID)

	var data PrizeUnit

	err = row.Scan(&data.ID, &data.PoolID, &data.Name, &data.Weight, &data.RemainingQuantity, &data.NullResult)
	if err != nil {
		if err == sql.ErrNoRows {
			return PrizeUnit{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("prize unit's properties with id '%s' is not found", ID))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return PrizeUnit{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting prize unit's properties")
	}

	return data, nil
}

// FindManyAvailableByPoolID implements PrizeUnitRepository.
func (r *prizeUnitRepository) FindManyAvailableByPoolID(ctx context.Context, poolID string, tx *sql.Tx) ([]PrizeUnit, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, pool_id, name, weight, remaining_quantity, null_result
		FROM prize_unit
		WHERE
			pool_id = $1
		AND
			remaining_quantity > 0
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of prize unit's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, poolID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of prize unit's properties")
	}

	defer rows.Close()

	var data = make([]PrizeUnit, 0)
	for rows.Next() {
		var unit PrizeUnit

		if err := rows.Scan(&unit.ID, &unit.PoolID, &unit.Name, &unit.Weight, &unit.RemainingQuantity, &unit.NullResult); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of prize unit's properties")
		}

		data = append(data, unit)
	}

	return data, nil
}

// DecrementRemaining implements PrizeUnitRepository. The decrement is
// conditional on remaining stock so concurrent draws against the same unit
// can never drive the quantity negative; losing the race reports EXHAUSTED.
func (r *prizeUnitRepository) DecrementRemaining(ctx context.Context, ID string, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE prize_unit
		SET
			remaining_quantity = remaining_quantity - 1
		WHERE
			id = $1
		AND
			remaining_quantity > 0
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating prize unit's properties")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating prize unit's properties")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating prize unit's properties")
	}

	if affected == 0 {
		return errors.New(http.StatusConflict, status.EXHAUSTED, "the selected prize has just run out")
	}

	return nil
}

// IncrementRemaining implements PrizeUnitRepository.
func (r *prizeUnitRepository) IncrementRemaining(ctx context.Context, ID string, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE prize_unit
		SET
			remaining_quantity = remaining_quantity + 1
		WHERE
			id = $1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating prize unit's properties")
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating prize unit's properties")
	}

	return nil
}
