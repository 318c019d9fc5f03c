package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation        = "23505"
	pgInvalidTextRepr        = "22P02"
	emailUniqueConstraint    = "users_email_key"
	userNameUniqueConstraint = "users_username_key"
)

const userColumns = `id::text, email, username, password_hash, profile, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	created := *user
	if created.ID == "" {
		created.ID = uuid.NewString()
	}

	profile, err := marshalProfile(created.Profile)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO users (id, email, username, password_hash, profile)
		 VALUES ($1, $2, $3, $4, $5::jsonb)
		 RETURNING created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		created.ID, created.Email, created.UserName, created.PasswordHash, profile).
		Scan(&created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}

	return &created, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, userName string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, userName)
}

func (r *PostgresRepository) Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	if patch.Empty() {
		return r.GetUserByID(ctx, id)
	}

	profile, err := marshalProfile(patch.Profile)
	if err != nil {
		return nil, err
	}

	query :=
		`UPDATE users SET
		   email = COALESCE($2, email),
		   username = COALESCE($3, username),
		   password_hash = COALESCE($4, password_hash),
		   profile = COALESCE($5::jsonb, profile),
		   updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	return r.getOne(ctx, query, id,
		nullable(patch.Email), nullable(patch.UserName), nullable(patch.PasswordHash), profile)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var (
		user    models.User
		profile []byte
	)

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Email, &user.UserName, &user.PasswordHash, &profile, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}

	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &user.Profile); err != nil {
			return nil, fmt.Errorf("db error: decoding profile: %w", err)
		}
	}

	return &user, nil
}

// mapPgError turns driver errors into store sentinels. A malformed uuid can
// never match a row, so it is reported as not found.
func mapPgError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			switch pgErr.ConstraintName {
			case emailUniqueConstraint:
				return common.ErrEmailTaken
			case userNameUniqueConstraint:
				return common.ErrUsernameTaken
			}
			return fmt.Errorf("%w: %s", common.ErrorConflict, pgErr.ConstraintName)
		case pgInvalidTextRepr:
			return common.ErrorNotFound
		}
	}

	return fmt.Errorf("db error: %w", err)
}

func marshalProfile(p map[string]any) (any, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: profile is not JSON-serializable: %v", common.ErrorValidation, err)
	}
	return string(b), nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
