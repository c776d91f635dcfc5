package pool

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/status"
	"github.com/sirupsen/logrus"
)

type PolicyTierRepository interface {
	FindManyByPoolID(ctx context.Context, poolID string, tx *sql.Tx) ([]CancellationPolicyTier, error)
}

type policyTierRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewPolicyTierRepository(logger *logrus.Logger, db *sql.DB) PolicyTierRepository {
	return &policyTierRepository{
		logger: logger,
		db:     db,
	}
}

// FindManyByPoolID implements PolicyTierRepository.
func (r *policyTierRepository) FindManyByPoolID(ctx context.Context, poolID string, tx *sql.Tx) ([]CancellationPolicyTier, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			pool_id, day, hour, minute, refund_percentage
		FROM cancellation_policy_tier
		WHERE
			pool_id = $1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of cancellation policy tier's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, poolID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of cancellation policy tier's properties")
	}

	defer rows.Close()

	var data = make([]CancellationPolicyTier, 0)
	for rows.Next() {
		var tier CancellationPolicyTier

		if err := rows.Scan(&tier.PoolID, &tier.Day, &tier.Hour, &tier.Minute, &tier.RefundPercentage); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of cancellation policy tier's properties")
		}

		data = append(data, tier)
	}

	return data, nil
}
