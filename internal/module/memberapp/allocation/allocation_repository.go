package allocation

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/lib/pq"
	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/status"
	"github.com/sirupsen/logrus"
)

const uniqueViolationCode = "23505"

type AllocationRepository interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(ctx context.Context, tx *sql.Tx) error
	Rollback(ctx context.Context, tx *sql.Tx) error

	Save(ctx context.Context, rec Record, tx *sql.Tx) error
	FindByIDForUpdate(ctx context.Context, ID string, tx *sql.Tx) (Record, error)
	FindManyActiveByMember(ctx context.Context, memberID int64, tx *sql.Tx) ([]ActiveRecord, error)
	CountActiveByPoolAndMember(ctx context.Context, poolID string, memberID int64, tx *sql.Tx) (int64, error)
	FindMany(ctx context.Context, memberID int64, offset, limit int64, tx *sql.Tx) ([]Record, error)
	Count(ctx context.Context, memberID int64, tx *sql.Tx) (int64, error)
	MarkCancelled(ctx context.Context, ID string, rec Record, tx *sql.Tx) error
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type allocationRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewAllocationRepository(logger *logrus.Logger, db *sql.DB) AllocationRepository {
	return &allocationRepository{
		logger: logger,
		db:     db,
	}
}

// BeginTx implements AllocationRepository.
func (r *allocationRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to begin transaction")
	}

	return tx, nil
}

// CommitTx implements AllocationRepository.
func (r *allocationRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to commit transaction")
	}

	return nil
}

// Rollback implements AllocationRepository.
func (r *allocationRepository) Rollback(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to rollback transaction")
	}

	return nil
}

// Save implements AllocationRepository. The allocation_record table carries a
// partial unique index on (pool_id, member_id) over active rows, so two
// concurrent draws by the same member resolve to one winner and one unique
// violation, which is reported as ALREADY_PARTICIPATED.
func (r *allocationRepository) Save(ctx context.Context, rec Record, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO allocation_record
		(
			id, pool_id, unit_id, member_id, member_name, member_email,
			quantity, payment_order_id, attended, created_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving allocation record's properties")
	}
	defer stmt.Close()

	var unitID sql.NullString
	if rec.UnitID != nil {
		unitID.String = *rec.UnitID
		unitID.Valid = true
	}

	var paymentOrderID sql.NullString
	if rec.PaymentOrderID != nil {
		paymentOrderID.String = *rec.PaymentOrderID
		paymentOrderID.Valid = true
	}

	_, err = stmt.ExecContext(ctx,
		rec.ID, rec.PoolID, unitID, rec.MemberID, rec.MemberName, rec.MemberEmail,
		rec.Quantity, paymentOrderID, rec.Attended, rec.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolationCode {
			return errors.New(http.StatusConflict, status.ALREADY_PARTICIPATED, "an active allocation already exists for this pool")
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving allocation record's properties")
	}

	return nil
}

// FindByIDForUpdate implements AllocationRepository.
func (r *allocationRepository) FindByIDForUpdate(ctx context.Context, ID string, tx *sql.Tx) (Record, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, pool_id, unit_id, member_id, member_name, member_email,
			quantity, payment_order_id, attended, created_at, cancelled_at
		FROM allocation_record
		WHERE
			id = $1
		FOR UPDATE
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Record{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting allocation record's properties for update")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ID)

	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Record{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("allocation record's properties with id '%s' is not found", ID))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return Record{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting allocation record's properties for update")
	}

	return rec, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var unitID sql.NullString
	var paymentOrderID sql.NullString
	var cancelledAt sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.PoolID, &unitID, &rec.MemberID, &rec.MemberName, &rec.MemberEmail,
		&rec.Quantity, &paymentOrderID, &rec.Attended, &rec.CreatedAt, &cancelledAt,
	)
	if err != nil {
		return Record{}, err
	}

	if unitID.Valid {
		rec.UnitID = &unitID.String
	}
	if paymentOrderID.Valid {
		rec.PaymentOrderID = &paymentOrderID.String
	}
	if cancelledAt.Valid {
		rec.CancelledAt = &cancelledAt.Time
	}

	return rec, nil
}

// FindManyActiveByMember implements AllocationRepository. Pool metadata is
// joined in so callers can run overlap checks without further lookups.
func (r *allocationRepository) FindManyActiveByMember(ctx context.Context, memberID int64, tx *sql.Tx) ([]ActiveRecord, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			ar.id, ar.pool_id, ar.unit_id, ar.member_id, ar.member_name, ar.member_email,
			ar.quantity, ar.payment_order_id, ar.attended, ar.created_at, ar.cancelled_at,
			rp.id, rp.kind, rp.title, rp.parent_kind, rp.parent_id, rp.start_at, rp.end_at,
			rp.registration_open_at, rp.registration_close_at, rp.total_capacity, rp.fee,
			rp.date_scoped, rp.allows_overlap, rp.not_register_same_time,
			rp.allows_cancellation, rp.deadline_offset_minutes
		FROM allocation_record ar
		JOIN resource_pool rp ON rp.id = ar.pool_id
		WHERE
			ar.member_id = $1
		AND
			ar.cancelled_at IS NULL
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of allocation record's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, memberID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of allocation record's properties")
	}

	defer rows.Close()

	var data = make([]ActiveRecord, 0)

	for rows.Next() {
		var ar ActiveRecord
		var unitID sql.NullString
		var paymentOrderID sql.NullString
		var cancelledAt sql.NullTime
		var registrationOpenAt sql.NullTime
		var registrationCloseAt sql.NullTime
		var deadlineOffsetMinutes sql.NullInt64

		if err := rows.Scan(
			&ar.ID, &ar.PoolID, &unitID, &ar.MemberID, &ar.MemberName, &ar.MemberEmail,
			&ar.Quantity, &paymentOrderID, &ar.Attended, &ar.CreatedAt, &cancelledAt,
			&ar.Pool.ID, &ar.Pool.Kind, &ar.Pool.Title, &ar.Pool.ParentKind, &ar.Pool.ParentID, &ar.Pool.StartAt, &ar.Pool.EndAt,
			&registrationOpenAt, &registrationCloseAt, &ar.Pool.TotalCapacity, &ar.Pool.Fee,
			&ar.Pool.DateScoped, &ar.Pool.AllowsOverlap, &ar.Pool.NotRegisterSameTime,
			&ar.Pool.AllowsCancellation, &deadlineOffsetMinutes,
		); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of allocation record's properties")
		}

		if unitID.Valid {
			ar.UnitID = &unitID.String
		}
		if paymentOrderID.Valid {
			ar.PaymentOrderID = &paymentOrderID.String
		}
		if cancelledAt.Valid {
			ar.CancelledAt = &cancelledAt.Time
		}
		if registrationOpenAt.Valid {
			ar.Pool.RegistrationOpenAt = &registrationOpenAt.Time
		}
		if registrationCloseAt.Valid {
			ar.Pool.RegistrationCloseAt = &registrationCloseAt.Time
		}
		if deadlineOffsetMinutes.Valid {
			ar.Pool.DeadlineOffsetMinutes = &deadlineOffsetMinutes.Int64
		}

		data = append(data, ar)
	}

	return data, nil
}

// CountActiveByPoolAndMember implements AllocationRepository.
func (r *allocationRepository) CountActiveByPoolAndMember(ctx context.Context, poolID string, memberID int64, tx *sql.Tx) (int64, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			count(id)
		FROM allocation_record
		WHERE
			pool_id = $1
		AND
			member_id = $2
		AND
			cancelled_at IS NULL
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting allocation record's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, poolID, memberID)

	var count int64

	if err := row.Scan(&count); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting allocation record's properties")
	}

	return count, nil
}

// FindMany implements AllocationRepository.
func (r *allocationRepository) FindMany(ctx context.Context, memberID int64, offset, limit int64, tx *sql.Tx) ([]Record, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, pool_id, unit_id, member_id, member_name, member_email,
			quantity, payment_order_id, attended, created_at, cancelled_at
		FROM allocation_record
		WHERE
			member_id = $1
		ORDER BY id DESC
		OFFSET $2
		LIMIT $3
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of allocation record's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, memberID, offset, limit)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of allocation record's properties")
	}

	defer rows.Close()

	var data = make([]Record, 0)

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of allocation record's properties")
		}

		data = append(data, rec)
	}

	return data, nil
}

// Count implements AllocationRepository.
func (r *allocationRepository) Count(ctx context.Context, memberID int64, tx *sql.Tx) (int64, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT count(id)
		FROM allocation_record
		WHERE
			member_id = $1
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting allocation record's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, memberID)

	var count int64

	if err := row.Scan(&count); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting allocation record's properties")
	}

	return count, nil
}

// MarkCancelled implements AllocationRepository. The cancelled_at guard makes
// the transition terminal; a second cancellation of the same record touches
// zero rows and is rejected.
func (r *allocationRepository) MarkCancelled(ctx context.Context, ID string, rec Record, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE allocation_record
		SET
			cancelled_at = $1
		WHERE
			id = $2
		AND
			cancelled_at IS NULL
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating allocation record's properties")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, rec.CancelledAt, ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating allocation record's properties")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating allocation record's properties")
	}

	if affected == 0 {
		return errors.New(http.StatusConflict, status.NOT_CANCELLABLE, "allocation record has already been cancelled")
	}

	return nil
}
