package pool

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/status"
	"github.com/sirupsen/logrus"
)

// SettingRepository exposes system-wide allocation settings. The only one the
// engine reads is the fallback cancellation tier applied when a pool defines
// no schedule of its own.
type SettingRepository interface {
	FindCancellationFallback(ctx context.Context, tx *sql.Tx) (CancellationPolicyTier, error)
}

type settingRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewSettingRepository(logger *logrus.Logger, db *sql.DB) SettingRepository {
	return &settingRepository{
		logger: logger,
		db:     db,
	}
}

// FindCancellationFallback implements SettingRepository.
func (r *settingRepository) FindCancellationFallback(ctx context.Context, tx *sql.Tx) (CancellationPolicyTier, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			cancel_day, cancel_hour, cancel_minute, refund_percentage
		FROM allocation_setting
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return CancellationPolicyTier{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting allocation setting's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx)

	var data CancellationPolicyTier

	err = row.Scan(&data.Day, &data.Hour, &data.Minute, &data.RefundPercentage)
	if err != nil {
		if err == sql.ErrNoRows {
			return CancellationPolicyTier{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "allocation setting is not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return CancellationPolicyTier{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting allocation setting's properties")
	}

	return data, nil
}
