package pool

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/status"
	"github.com/sirupsen/logrus"
)

type PoolRepository interface {
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (Pool, error)
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type poolRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewPoolRepository(logger *logrus.Logger, db *sql.DB) PoolRepository {
	return &poolRepository{
		logger: logger,
		db:     db,
	}
}

// FindByID implements PoolRepository.
func (r *poolRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (Pool, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, kind, title, parent_kind, parent_id, start_at, end_at,
			registration_open_at, registration_close_at, total_capacity, fee,
			date_scoped, allows_overlap, not_register_same_time,
			allows_cancellation, deadline_offset_minutes
		FROM resource_pool
		WHERE
			id = $1
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Pool{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting resource pool's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ID)

	var data Pool
	var registrationOpenAt sql.NullTime
	var registrationCloseAt sql.NullTime
	var deadlineOffsetMinutes sql.NullInt64

	err = row.Scan(
		&data.ID, &data.Kind, &data.Title, &data.ParentKind, &data.ParentID, &data.StartAt, &data.EndAt,
		&registrationOpenAt, &registrationCloseAt, &data.TotalCapacity, &data.Fee,
		&data.DateScoped, &data.AllowsOverlap, &data.NotRegisterSameTime,
		&data.AllowsCancellation, &deadlineOffsetMinutes,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Pool{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("resource pool's properties with id '%s' is not found", ID))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return Pool{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting resource pool's properties")
	}

	if registrationOpenAt.Valid {
		data.RegistrationOpenAt = &registrationOpenAt.Time
	}
	if registrationCloseAt.Valid {
		data.RegistrationCloseAt = &registrationCloseAt.Time
	}
	if deadlineOffsetMinutes.Valid {
		data.DeadlineOffsetMinutes = &deadlineOffsetMinutes.Int64
	}

	return data, nil
}
