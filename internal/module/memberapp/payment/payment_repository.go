package payment

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/status"
	"github.com/sirupsen/logrus"
)

type PaymentRepository interface {
	FindFulfilledPurchase(ctx context.Context, memberID int64, poolID string, amount float64, tx *sql.Tx) (Record, error)
	FindFulfilledPurchaseByAllocation(ctx context.Context, allocationID string, tx *sql.Tx) (Record, error)
	Save(ctx context.Context, p Record, tx *sql.Tx) error
	LinkAllocation(ctx context.Context, orderID string, allocationID string, tx *sql.Tx) error
	UpdateStatus(ctx context.Context, orderID string, paymentStatus string, tx *sql.Tx) error
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type paymentRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewPaymentRepository(logger *logrus.Logger, db *sql.DB) PaymentRepository {
	return &paymentRepository{
		logger: logger,
		db:     db,
	}
}

func (r *paymentRepository) findOne(ctx context.Context, cmd sqlCommand, query string, args ...interface{}) (Record, error) {
	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Record{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting payment record's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, args...)

	var data Record
	var allocationID sql.NullString

	err = row.Scan(&data.OrderID, &data.MemberID, &data.PoolID, &allocationID, &data.Amount, &data.Type, &data.Status, &data.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return Record{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "payment record's properties is not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return Record{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting payment record's properties")
	}

	if allocationID.Valid {
		data.AllocationID = &allocationID.String
	}

	return data, nil
}

// FindFulfilledPurchase implements PaymentRepository. The amount must match
// exactly; a fulfilled purchase over a different amount does not open the
// gate.
func (r *paymentRepository) FindFulfilledPurchase(ctx context.Context, memberID int64, poolID string, amount float64, tx *sql.Tx) (Record, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			order_id, member_id, pool_id, allocation_id, amount, type, status, created_at
		FROM payment_record
		WHERE
			member_id = $1
		AND
			pool_id = $2
		AND
			amount = $3
		AND
			type = $4
		AND
			status = $5
		LIMIT 1
	`

	return r.findOne(ctx, cmd, query, memberID, poolID, amount, TypePurchase, StatusFulfilled)
}

// FindFulfilledPurchaseByAllocation implements PaymentRepository.
func (r *paymentRepository) FindFulfilledPurchaseByAllocation(ctx context.Context, allocationID string, tx *sql.Tx) (Record, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			order_id, member_id, pool_id, allocation_id, amount, type, status, created_at
		FROM payment_record
		WHERE
			allocation_id = $1
		AND
			type = $2
		AND
			status = $3
		LIMIT 1
	`

	return r.findOne(ctx, cmd, query, allocationID, TypePurchase, StatusFulfilled)
}

// Save implements PaymentRepository.
func (r *paymentRepository) Save(ctx context.Context, p Record, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO payment_record
		(
			order_id, member_id, pool_id, allocation_id, amount, type, status, created_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving payment record's properties")
	}
	defer stmt.Close()

	var allocationID sql.NullString
	if p.AllocationID != nil {
		allocationID.String = *p.AllocationID
		allocationID.Valid = true
	}

	_, err = stmt.ExecContext(ctx, p.OrderID, p.MemberID, p.PoolID, allocationID, p.Amount, p.Type, p.Status, p.CreatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving payment record's properties")
	}

	return nil
}

// LinkAllocation implements PaymentRepository.
func (r *paymentRepository) LinkAllocation(ctx context.Context, orderID string, allocationID string, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE payment_record
		SET
			allocation_id = $1
		WHERE
			order_id = $2
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating payment record's properties")
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, allocationID, orderID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating payment record's properties")
	}

	return nil
}

// UpdateStatus implements PaymentRepository.
func (r *paymentRepository) UpdateStatus(ctx context.Context, orderID string, paymentStatus string, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE payment_record
		SET
			status = $1
		WHERE
			order_id = $2
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating payment record's properties")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, paymentStatus, orderID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating payment record's properties")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating payment record's properties")
	}

	if affected == 0 {
		return errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("payment record's properties with order id '%s' is not found", orderID))
	}

	return nil
}
