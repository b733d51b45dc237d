package repository

import (
	"account-api/internal/core"
	"account-api/internal/models"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound          = errors.New("account not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUserName = errors.New("user name already registered")
)

// Constraint names from migrations/00001_create_accounts.sql.
const (
	emailConstraint    = "accounts_email_key"
	userNameConstraint = "accounts_user_name_key"
)

// DBTX is the subset of pgx used by the store. *pgxpool.Pool and pgx.Tx both satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresAccountStore struct {
	db DBTX
}

func NewAccountStore(db DBTX) core.CredentialStore {
	return &PostgresAccountStore{db: db}
}

const accountColumns = `id, email, password_digest, full_name, user_name, company_name, phone_number, role,
		comments, user_logo, user_logo_path, company_logo, company_logo_path, created_at, updated_at`

// --- Auth & Basic ---

func (r *PostgresAccountStore) Create(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.db.Exec(ctx, query,
		a.ID, a.Email, a.PasswordDigest, a.FullName, a.UserName, a.CompanyName, a.PhoneNumber, string(a.Role),
		a.Comments, a.UserLogo, a.UserLogoPath, a.CompanyLogo, a.CompanyLogoPath, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return translateError("create account", err)
	}
	return nil
}

func (r *PostgresAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, translateError("find account by email", err)
	}
	return a, nil
}

func (r *PostgresAccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id::text = $1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translateError("find account by id", err)
	}
	return a, nil
}

// --- Profile ---

// UpdateByID applies the non-nil patch fields in one statement; the unique constraints
// reject conflicting email/userName values atomically.
func (r *PostgresAccountStore) UpdateByID(ctx context.Context, id string, patch models.AccountPatch) (*models.Account, error) {
	var role *string
	if patch.Role != nil {
		s := string(*patch.Role)
		role = &s
	}
	query := `
		UPDATE accounts SET
			email = COALESCE($2, email),
			full_name = COALESCE($3, full_name),
			user_name = COALESCE($4, user_name),
			company_name = COALESCE($5, company_name),
			phone_number = COALESCE($6, phone_number),
			role = COALESCE($7, role),
			comments = COALESCE($8, comments),
			updated_at = NOW()
		WHERE id::text = $1
		RETURNING ` + accountColumns
	a, err := scanAccount(r.db.QueryRow(ctx, query, id,
		patch.Email, patch.FullName, patch.UserName, patch.CompanyName, patch.PhoneNumber, role, patch.Comments))
	if err != nil {
		return nil, translateError("update account", err)
	}
	return a, nil
}

// --- Uniqueness ---

func (r *PostgresAccountStore) ExistsByEmailExcluding(ctx context.Context, email, excludeID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1 AND id::text <> $2)`, email, excludeID)
}

func (r *PostgresAccountStore) ExistsByUserNameExcluding(ctx context.Context, userName, excludeID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE user_name = $1 AND id::text <> $2)`, userName, excludeID)
}

func (r *PostgresAccountStore) exists(ctx context.Context, query, value, excludeID string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, query, value, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("uniqueness lookup: %w", err)
	}
	return exists, nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	var role string
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordDigest, &a.FullName, &a.UserName, &a.CompanyName, &a.PhoneNumber, &role,
		&a.Comments, &a.UserLogo, &a.UserLogoPath, &a.CompanyLogo, &a.CompanyLogoPath, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Role = models.Role(role)
	return &a, nil
}

// translateError maps pgx failures onto the package sentinels.
func translateError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case emailConstraint:
			return ErrDuplicateEmail
		case userNameConstraint:
			return ErrDuplicateUserName
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
