package db

import (
	"context"
	"errors"

	"github.com/HanTheDev/policyguard/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// GetProfile loads a user with the optional banking and other-details rows.
func (db *DB) GetProfile(ctx context.Context, email string) (*models.Profile, error) {
	query := `
        SELECT u.id, u.email, u.name, u.surname, u.created_at,
            u.mobile, u.address, COALESCE(u.customer_id, ''),
            b.aadhar_number, b.pan_number, b.account_number, b.ifsc_code,
            d.sex, d.dob, d.education_level, d.occupation, d.hobbies, d.relationship
        FROM users u
        LEFT JOIN banking_details b ON b.user_email = u.email
        LEFT JOIN other_details d ON d.user_email = u.email
        WHERE u.email = $1
    `

	var p models.Profile
	var aadhar, pan, account, ifsc *string
	var sex, dob, education, occupation, hobbies, relationship *string

	err := db.Pool.QueryRow(ctx, query, email).Scan(
		&p.ID,
		&p.Email,
		&p.Name,
		&p.Surname,
		&p.CreatedAt,
		&p.Mobile,
		&p.Address,
		&p.CustomerID,
		&aadhar,
		&pan,
		&account,
		&ifsc,
		&sex,
		&dob,
		&education,
		&occupation,
		&hobbies,
		&relationship,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if aadhar != nil {
		p.Banking = &models.BankingDetails{
			AadharNumber:  *aadhar,
			PANNumber:     *pan,
			AccountNumber: *account,
			IFSCCode:      *ifsc,
		}
	}
	if sex != nil {
		p.Other = &models.OtherDetails{
			Sex:            *sex,
			DateOfBirth:    *dob,
			EducationLevel: *education,
			Occupation:     *occupation,
			Hobbies:        *hobbies,
			Relationship:   *relationship,
		}
	}

	return &p, nil
}

// EnsureCustomerID stores candidate unless the user already has a customer
// id, and returns the id in effect.
func (db *DB) EnsureCustomerID(ctx context.Context, email, candidate string) (string, error) {
	query := `
        UPDATE users
        SET customer_id = COALESCE(customer_id, $2)
        WHERE email = $1
        RETURNING customer_id
    `

	var id string
	err := db.Pool.QueryRow(ctx, query, email, candidate).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUserNotFound
	}
	return id, err
}

func (db *DB) UpdatePersonal(ctx context.Context, email, name, mobile string) error {
	return db.execUser(ctx, `UPDATE users SET name = $2, mobile = $3 WHERE email = $1`, email, name, mobile)
}

func (db *DB) UpdateAddress(ctx context.Context, email, address string) error {
	return db.execUser(ctx, `UPDATE users SET address = $2 WHERE email = $1`, email, address)
}

func (db *DB) UpsertBanking(ctx context.Context, email string, b *models.BankingDetails) error {
	query := `
        INSERT INTO banking_details (user_email, aadhar_number, pan_number, account_number, ifsc_code)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_email) DO UPDATE
        SET aadhar_number = EXCLUDED.aadhar_number,
            pan_number = EXCLUDED.pan_number,
            account_number = EXCLUDED.account_number,
            ifsc_code = EXCLUDED.ifsc_code
    `

	return db.execUser(ctx, query, email, b.AadharNumber, b.PANNumber, b.AccountNumber, b.IFSCCode)
}

func (db *DB) UpsertOtherDetails(ctx context.Context, email string, d *models.OtherDetails) error {
	query := `
        INSERT INTO other_details (user_email, sex, dob, education_level, occupation, hobbies, relationship)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (user_email) DO UPDATE
        SET sex = EXCLUDED.sex,
            dob = EXCLUDED.dob,
            education_level = EXCLUDED.education_level,
            occupation = EXCLUDED.occupation,
            hobbies = EXCLUDED.hobbies,
            relationship = EXCLUDED.relationship
    `

	return db.execUser(ctx, query, email, d.Sex, d.DateOfBirth, d.EducationLevel, d.Occupation, d.Hobbies, d.Relationship)
}

// execUser runs a statement keyed by user email. A missing user surfaces as
// ErrUserNotFound whether it shows up as zero rows or a foreign key error.
func (db *DB) execUser(ctx context.Context, query string, args ...any) error {
	tag, err := db.Pool.Exec(ctx, query, args...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
