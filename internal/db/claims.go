package db

import (
	"context"
	"errors"

	"github.com/HanTheDev/policyguard/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const claimColumns = `
        c.id, c.user_email, c.status, c.incident_type, c.severity,
        c.total_amount, c.injury_amount, c.property_amount, c.vehicle_amount,
        c.incident_date, c.incident_hour, c.incident_location, c.incident_city,
        c.vehicles_involved, c.witnesses, c.property_damage, c.bodily_injuries, c.police_report,
        c.created_at, c.updated_at`

func (db *DB) CreateClaim(ctx context.Context, claim *models.Claim) error {
	query := `
        INSERT INTO claims (
            id, user_email, status, incident_type, severity,
            total_amount, injury_amount, property_amount, vehicle_amount,
            incident_date, incident_hour, incident_location, incident_city,
            vehicles_involved, witnesses, property_damage, bodily_injuries, police_report
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
        RETURNING created_at, updated_at
    `

	err := db.Pool.QueryRow(ctx, query,
		claim.ID,
		claim.UserEmail,
		claim.Status,
		claim.IncidentType,
		claim.Severity,
		claim.TotalAmount,
		claim.InjuryAmount,
		claim.PropertyAmount,
		claim.VehicleAmount,
		claim.IncidentDate,
		claim.IncidentHour,
		claim.IncidentLocation,
		claim.IncidentCity,
		claim.VehiclesInvolved,
		claim.Witnesses,
		claim.PropertyDamage,
		claim.BodilyInjuries,
		claim.PoliceReport,
	).Scan(&claim.CreatedAt, &claim.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return ErrUserNotFound
	}

	return err
}

func (db *DB) ListClaims(ctx context.Context, userEmail string) ([]models.Claim, error) {
	query := `
        SELECT` + claimColumns + `
        FROM claims c
        WHERE c.user_email = $1
        ORDER BY c.created_at DESC
    `

	rows, err := db.Pool.Query(ctx, query, userEmail)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Claim, error) {
		var claim models.Claim
		err := row.Scan(claimFields(&claim)...)
		return claim, err
	})
}

func (db *DB) ListClaimRecords(ctx context.Context) ([]models.ClaimRecord, error) {
	query := `
        SELECT` + claimColumns + `, u.name
        FROM claims c
        JOIN users u ON u.email = c.user_email
        ORDER BY c.created_at DESC
    `

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ClaimRecord, error) {
		var rec models.ClaimRecord
		err := row.Scan(append(claimFields(&rec.Claim), &rec.UserName)...)
		return rec, err
	})
}

func (db *DB) UpdateClaimStatus(ctx context.Context, id, status string) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE claims SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func claimFields(c *models.Claim) []any {
	return []any{
		&c.ID,
		&c.UserEmail,
		&c.Status,
		&c.IncidentType,
		&c.Severity,
		&c.TotalAmount,
		&c.InjuryAmount,
		&c.PropertyAmount,
		&c.VehicleAmount,
		&c.IncidentDate,
		&c.IncidentHour,
		&c.IncidentLocation,
		&c.IncidentCity,
		&c.VehiclesInvolved,
		&c.Witnesses,
		&c.PropertyDamage,
		&c.BodilyInjuries,
		&c.PoliceReport,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
}
