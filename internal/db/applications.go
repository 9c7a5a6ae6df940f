package db

import (
	"context"
	"errors"

	"github.com/HanTheDev/policyguard/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const applicationColumns = `
        a.id, a.user_email, a.status, a.vehicle_type, a.registration_number, a.make, a.model, a.year,
        a.applicant_name, a.mobile, a.email, a.address, a.city, a.state,
        a.idv, a.ncb, a.addons, a.annual_premium, a.umbrella_limit, a.csl, a.total_insurance_amount,
        a.management_id, a.created_at, a.updated_at`

func (db *DB) CreateApplication(ctx context.Context, app *models.Application) error {
	query := `
        INSERT INTO applications (
            id, user_email, status, vehicle_type, registration_number, make, model, year,
            applicant_name, mobile, email, address, city, state,
            idv, ncb, addons, annual_premium, umbrella_limit, csl, total_insurance_amount
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
        RETURNING created_at, updated_at
    `

	addons := app.Terms.Addons
	if addons == nil {
		addons = []string{}
	}

	err := db.Pool.QueryRow(ctx, query,
		app.ID,
		app.UserEmail,
		app.Status,
		app.Vehicle.Type,
		app.Vehicle.RegistrationNumber,
		app.Vehicle.Make,
		app.Vehicle.Model,
		app.Vehicle.Year,
		app.Applicant.Name,
		app.Applicant.Mobile,
		app.Applicant.Email,
		app.Applicant.Address,
		app.Applicant.City,
		app.Applicant.State,
		app.Terms.IDV,
		app.Terms.NCB,
		addons,
		app.Terms.AnnualPremium,
		app.Terms.UmbrellaLimit,
		app.Terms.CSL,
		app.Terms.TotalInsuranceAmount,
	).Scan(&app.CreatedAt, &app.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return ErrUserNotFound
	}

	return err
}

// LinkApplication attaches a claim management id to an application owned by
// userEmail.
func (db *DB) LinkApplication(ctx context.Context, id, userEmail, managementID string) error {
	query := `
        UPDATE applications
        SET management_id = $3, updated_at = NOW()
        WHERE id = $1 AND user_email = $2
    `

	tag, err := db.Pool.Exec(ctx, query, id, userEmail, managementID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListApplications returns userEmail's applications, newest first. An empty
// status matches every status.
func (db *DB) ListApplications(ctx context.Context, userEmail, status string) ([]models.Application, error) {
	query := `
        SELECT` + applicationColumns + `
        FROM applications a
        WHERE a.user_email = $1 AND ($2 = '' OR a.status = $2)
        ORDER BY a.created_at DESC
    `

	rows, err := db.Pool.Query(ctx, query, userEmail, status)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Application, error) {
		var app models.Application
		err := row.Scan(applicationFields(&app)...)
		return app, err
	})
}

func (db *DB) UpdateApplicationStatus(ctx context.Context, id, status string) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE applications SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPolicyRecords joins every application with its applicant's profile.
func (db *DB) ListPolicyRecords(ctx context.Context) ([]models.PolicyRecord, error) {
	query := `
        SELECT` + applicationColumns + `,
            COALESCE(u.customer_id, ''),
            COALESCE(b.pan_number, ''),
            COALESCE(d.occupation, ''),
            COALESCE(d.education_level, ''),
            COALESCE(d.dob, '')
        FROM applications a
        JOIN users u ON u.email = a.user_email
        LEFT JOIN banking_details b ON b.user_email = a.user_email
        LEFT JOIN other_details d ON d.user_email = a.user_email
        ORDER BY a.created_at DESC
    `

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.PolicyRecord, error) {
		var rec models.PolicyRecord
		dest := append(applicationFields(&rec.Application),
			&rec.CustomerID,
			&rec.PANNumber,
			&rec.Occupation,
			&rec.Education,
			&rec.BirthDate,
		)
		err := row.Scan(dest...)
		return rec, err
	})
}

func applicationFields(app *models.Application) []any {
	return []any{
		&app.ID,
		&app.UserEmail,
		&app.Status,
		&app.Vehicle.Type,
		&app.Vehicle.RegistrationNumber,
		&app.Vehicle.Make,
		&app.Vehicle.Model,
		&app.Vehicle.Year,
		&app.Applicant.Name,
		&app.Applicant.Mobile,
		&app.Applicant.Email,
		&app.Applicant.Address,
		&app.Applicant.City,
		&app.Applicant.State,
		&app.Terms.IDV,
		&app.Terms.NCB,
		&app.Terms.Addons,
		&app.Terms.AnnualPremium,
		&app.Terms.UmbrellaLimit,
		&app.Terms.CSL,
		&app.Terms.TotalInsuranceAmount,
		&app.ManagementID,
		&app.CreatedAt,
		&app.UpdatedAt,
	}
}
