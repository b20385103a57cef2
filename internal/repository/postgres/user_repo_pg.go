package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/njprem/tours-auth-api/internal/domain"
	"github.com/njprem/tours-auth-api/internal/repository/ports"
)

const userColumns = `id, name, email, photo, role, password_hash, password_changed_at,
        password_reset_token, password_reset_expires, active, created_at, updated_at`

type CredentialStore struct {
	db *sqlx.DB
}

var _ ports.CredentialStore = (*CredentialStore)(nil)

func NewCredentialStore(db *sqlx.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

func (r *CredentialStore) Create(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	query := `
        INSERT INTO users (id, name, email, photo, role, password_hash)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + userColumns

	var user domain.User
	err := r.db.QueryRowxContext(ctx, query,
		uuid.New(), strings.TrimSpace(in.Name), normalizeEmail(in.Email), domain.DefaultPhoto, role, in.PasswordHash,
	).StructScan(&user)
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *CredentialStore) FindActiveByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND active`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *CredentialStore) FindActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND active`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, normalizeEmail(email)); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *CredentialStore) SetPasswordResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	const query = `
        UPDATE users
        SET password_reset_token = $2,
            password_reset_expires = $3,
            updated_at = NOW()
        WHERE id = $1 AND active
    `
	return r.execOne(ctx, query, id, tokenHash, expiresAt.UTC())
}

func (r *CredentialStore) ClearPasswordResetToken(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE users
        SET password_reset_token = NULL,
            password_reset_expires = NULL,
            updated_at = NOW()
        WHERE id = $1 AND active
    `
	return r.execOne(ctx, query, id)
}

// ConsumePasswordResetToken relies on the row lock taken by UPDATE: a second
// concurrent call re-evaluates the WHERE clause after the first commits and
// finds the token already cleared.
func (r *CredentialStore) ConsumePasswordResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string, changedAt time.Time) (*domain.User, error) {
	query := `
        UPDATE users
        SET password_hash = $3,
            password_changed_at = $4,
            password_reset_token = NULL,
            password_reset_expires = NULL,
            updated_at = NOW()
        WHERE password_reset_token = $1
          AND password_reset_expires > $2
          AND active
        RETURNING ` + userColumns

	var user domain.User
	err := r.db.QueryRowxContext(ctx, query, tokenHash, now.UTC(), passwordHash, changedAt.UTC()).StructScan(&user)
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *CredentialStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error {
	const query = `
        UPDATE users
        SET password_hash = $2,
            password_changed_at = $3,
            updated_at = NOW()
        WHERE id = $1 AND active
    `
	return r.execOne(ctx, query, id, passwordHash, changedAt.UTC())
}

func (r *CredentialStore) UpgradePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const query = `
        UPDATE users
        SET password_hash = $2,
            updated_at = NOW()
        WHERE id = $1 AND active
    `
	return r.execOne(ctx, query, id, passwordHash)
}

func (r *CredentialStore) UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	var email *string
	if update.Email != nil {
		normalized := normalizeEmail(*update.Email)
		email = &normalized
	}
	var name *string
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		name = &trimmed
	}
	query := `
        UPDATE users
        SET name = COALESCE($2, name),
            email = COALESCE($3, email),
            photo = COALESCE($4, photo),
            updated_at = NOW()
        WHERE id = $1 AND active
        RETURNING ` + userColumns

	var user domain.User
	if err := r.db.QueryRowxContext(ctx, query, id, name, email, update.Photo).StructScan(&user); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *CredentialStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE users
        SET active = FALSE,
            updated_at = NOW()
        WHERE id = $1 AND active
    `
	return r.execOne(ctx, query, id)
}

func (r *CredentialStore) ListActive(ctx context.Context, limit, offset int) ([]domain.User, error) {
	query := `
        SELECT ` + userColumns + `
        FROM users
        WHERE active
        ORDER BY created_at ASC, id ASC
        LIMIT $1 OFFSET $2
    `
	users := []domain.User{}
	if err := r.db.SelectContext(ctx, &users, query, limit, offset); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *CredentialStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *CredentialStore) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == "users_email_key" {
		return ports.ErrEmailTaken
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
