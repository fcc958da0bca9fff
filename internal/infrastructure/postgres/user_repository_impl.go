package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/flowery-users/internal/domain/entity"
	"github.com/oksasatya/flowery-users/internal/domain/repository"
	"github.com/oksasatya/flowery-users/pkg/apperror"
)

const userColumns = `id, first_name, last_name, email, birth_date, password_hash, role,
	cart_id, documents, last_connection, deleted_at, created_at, updated_at`

// activeOnly is the soft-delete predicate; every read and write statement
// against users must include it.
func activeOnly(alias string) string {
	if alias == "" {
		return "deleted_at IS NULL"
	}
	return alias + ".deleted_at IS NULL"
}

// UserStore persists users in Postgres. Documents live in a JSONB column.
type UserStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool, now: time.Now}
}

func (r *UserStore) FindPage(ctx context.Context, limit, page int) (*repository.UserPage, error) {
	limit, page = repository.NormalizePaging(limit, page)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE `+activeOnly("")).Scan(&total); err != nil {
		return nil, dbError("getUsers Error", "failed to count users", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE `+activeOnly("")+`
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, limit, repository.Offset(limit, page))
	if err != nil {
		return nil, dbError("getUsers Error", "failed to retrieve users", err)
	}
	users, err := collectUsers(rows)
	if err != nil {
		return nil, dbError("getUsers Error", "failed to retrieve users", err)
	}
	return repository.NewUserPage(users, total, limit, page), nil
}

func (r *UserStore) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE lower(email) = lower($1) AND `+activeOnly("")+`
	`, strings.TrimSpace(email))

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dbError("getUserByEmail Error", "failed to retrieve user", err)
	}
	return u, nil
}

func (r *UserStore) UpdateByID(ctx context.Context, id string, upd repository.UserUpdate) (*entity.User, error) {
	var role *string
	if upd.Role != nil {
		s := string(*upd.Role)
		role = &s
	}
	var docs []byte
	if upd.Documents != nil {
		b, err := json.Marshal(*upd.Documents)
		if err != nil {
			return nil, dbError("updateUser Error", "failed to encode documents", err)
		}
		docs = b
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET role = COALESCE($2, role),
		    last_connection = COALESCE($3, last_connection),
		    documents = COALESCE($4::jsonb, documents),
		    updated_at = $5
		WHERE id = $1 AND `+activeOnly("")+`
		RETURNING `+userColumns,
		id, role, upd.LastConnection, docs, r.now())

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, apperror.New(apperror.NotFound, "updateUser Error", "user not found", map[string]any{"id": id})
		}
		return nil, dbError("updateUser Error", "failed to update user", err)
	}
	return u, nil
}

func (r *UserStore) Create(ctx context.Context, u *entity.User) (*entity.User, error) {
	docs, err := json.Marshal(documentsOrEmpty(u.Documents))
	if err != nil {
		return nil, dbError("createUser Error", "failed to encode documents", err)
	}
	role := u.Role
	if role == "" {
		role = entity.RoleUser
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (first_name, last_name, email, birth_date, password_hash, role, cart_id, documents, last_connection)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
		RETURNING `+userColumns,
		u.FirstName, u.LastName, u.Email, u.BirthDate, u.Password, string(role), u.Cart, docs, u.LastConnection)

	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.New(apperror.BusinessRuleViolation, "createUser Error", "email already registered", map[string]any{"email": u.Email})
		}
		return nil, dbError("createUser Error", "failed to create user", err)
	}
	return created, nil
}

func (r *UserStore) DeleteByEmail(ctx context.Context, email string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM users
		WHERE lower(email) = lower($1) AND `+activeOnly("")+`
		RETURNING `+userColumns, strings.TrimSpace(email))

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dbError("deleteUserByEmail Error", "failed to delete user", err)
	}
	return u, nil
}

// SweepInactive locks the stale rows, soft-deletes them with one bulk update
// and returns the rows as selected, oldest connection first.
func (r *UserStore) SweepInactive(ctx context.Context, thresholdDays int) ([]entity.User, error) {
	now := r.now()
	cutoff := now.Add(-time.Duration(thresholdDays) * 24 * time.Hour)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, dbError("deleteInactiveUsers Error", "failed to begin sweep", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE last_connection < $1 AND `+activeOnly("")+`
		ORDER BY last_connection, id
		FOR UPDATE
	`, cutoff)
	if err != nil {
		return nil, dbError("deleteInactiveUsers Error", "failed to select inactive users", err)
	}
	stale, err := collectUsers(rows)
	if err != nil {
		return nil, dbError("deleteInactiveUsers Error", "failed to select inactive users", err)
	}
	if len(stale) == 0 {
		return stale, nil
	}

	ids := make([]string, 0, len(stale))
	for _, u := range stale {
		ids = append(ids, u.ID)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE users SET deleted_at = $2, updated_at = $2
		WHERE id = ANY($1::uuid[])
	`, ids, now); err != nil {
		return nil, dbError("deleteInactiveUsers Error", "failed to soft delete inactive users", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, dbError("deleteInactiveUsers Error", "failed to commit sweep", err)
	}
	return stale, nil
}

func collectUsers(rows pgx.Rows) ([]entity.User, error) {
	defer rows.Close()
	users := []entity.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var (
		u        entity.User
		lastName *string
		password *string
		role     string
		cart     *string
		docs     []byte
	)
	if err := row.Scan(&u.ID, &u.FirstName, &lastName, &u.Email, &u.BirthDate, &password, &role,
		&cart, &docs, &u.LastConnection, &u.DeletedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if lastName != nil {
		u.LastName = *lastName
	}
	if password != nil {
		u.Password = *password
	}
	if cart != nil {
		u.Cart = *cart
	}
	u.Role = entity.Role(role)
	documents, err := decodeDocuments(docs)
	if err != nil {
		return nil, err
	}
	u.Documents = documents
	return &u, nil
}

func decodeDocuments(raw []byte) ([]entity.Document, error) {
	if len(raw) == 0 {
		return []entity.Document{}, nil
	}
	var docs []entity.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}
	return documentsOrEmpty(docs), nil
}

func documentsOrEmpty(docs []entity.Document) []entity.Document {
	if docs == nil {
		return []entity.Document{}
	}
	return docs
}

func dbError(name, message string, err error) error {
	return apperror.Wrap(err, name, message)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isInvalidID matches malformed uuid input, which can never resolve to a row.
func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

var _ repository.UserStore = (*UserStore)(nil)
