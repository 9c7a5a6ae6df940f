package db

import (
	"context"

	"github.com/HanTheDev/policyguard/internal/models"
)

func (db *DB) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	query := `
        SELECT
            (SELECT COUNT(*) FROM applications),
            (SELECT COUNT(*) FROM applications WHERE status = $1),
            (SELECT COUNT(*) FROM applications WHERE status = $2),
            (SELECT COUNT(*) FROM applications WHERE status = $3),
            (SELECT COUNT(*) FROM claims),
            (SELECT COUNT(*) FROM claims WHERE status = $4),
            (SELECT COUNT(*) FROM claims WHERE status = $5),
            (SELECT COUNT(*) FROM claims WHERE status = $6),
            (SELECT COUNT(*) FROM users)
    `

	var stats models.DashboardStats
	var active, pending, expired, inProgress, approved, rejected int

	err := db.Pool.QueryRow(ctx, query,
		models.StatusActive,
		models.StatusPending,
		models.StatusExpired,
		models.ClaimInProgress,
		models.ClaimApproved,
		models.ClaimRejected,
	).Scan(
		&stats.TotalPolicies,
		&active,
		&pending,
		&expired,
		&stats.TotalClaims,
		&inProgress,
		&approved,
		&rejected,
		&stats.TotalUsers,
	)
	if err != nil {
		return nil, err
	}

	stats.PolicyDistribution = map[string]int{
		"active":  active,
		"pending": pending,
		"expired": expired,
	}
	stats.ClaimsDistribution = map[string]int{
		"pending":  inProgress,
		"approved": approved,
		"rejected": rejected,
	}

	return &stats, nil
}
