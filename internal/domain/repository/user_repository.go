package repository

import (
	"context"
	"math"
	"time"

	"github.com/oksasatya/flowery-users/internal/domain/entity"
)

const (
	DefaultLimit = 10
	DefaultPage  = 1
)

// UserUpdate lists the fields UpdateByID is allowed to write.
// Nil fields are left untouched.
type UserUpdate struct {
	Role           *entity.Role
	LastConnection *time.Time
	Documents      *[]entity.Document
}

// UserPage is one page of active users plus pagination metadata.
type UserPage struct {
	Users         []entity.User
	TotalUsers    int
	Limit         int
	TotalPages    int
	PagingCounter int
	Page          int
	HasPrevPage   bool
	HasNextPage   bool
	PrevPage      *int
	NextPage      *int
}

// UserStore is the persistence contract for user records. Every read
// excludes soft-deleted users. FindByEmail and DeleteByEmail return
// (nil, nil) when nothing matches.
type UserStore interface {
	FindPage(ctx context.Context, limit, page int) (*UserPage, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateByID(ctx context.Context, id string, upd UserUpdate) (*entity.User, error)
	Create(ctx context.Context, u *entity.User) (*entity.User, error)
	DeleteByEmail(ctx context.Context, email string) (*entity.User, error)
	// SweepInactive soft-deletes active users whose last connection is older
	// than thresholdDays and returns them as they were before the update.
	SweepInactive(ctx context.Context, thresholdDays int) ([]entity.User, error)
}

// UserRepository is what the application layer depends on.
type UserRepository interface {
	GetUsers(ctx context.Context, limit, page int) (*UserPage, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*entity.User, error)
	Create(ctx context.Context, u *entity.User) (*entity.User, error)
	DeleteByEmail(ctx context.Context, email string) (*entity.User, error)
	DeleteInactive(ctx context.Context, thresholdDays int) ([]entity.User, error)
}

type userRepository struct {
	store UserStore
}

// NewUserRepository wraps a store.
func NewUserRepository(store UserStore) UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) GetUsers(ctx context.Context, limit, page int) (*UserPage, error) {
	return r.store.FindPage(ctx, limit, page)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.store.FindByEmail(ctx, email)
}

func (r *userRepository) Update(ctx context.Context, id string, upd UserUpdate) (*entity.User, error) {
	return r.store.UpdateByID(ctx, id, upd)
}

func (r *userRepository) Create(ctx context.Context, u *entity.User) (*entity.User, error) {
	return r.store.Create(ctx, u)
}

func (r *userRepository) DeleteByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.store.DeleteByEmail(ctx, email)
}

func (r *userRepository) DeleteInactive(ctx context.Context, thresholdDays int) ([]entity.User, error) {
	return r.store.SweepInactive(ctx, thresholdDays)
}

// NormalizePaging coerces limit and page to positive values, falling back to
// the defaults.
func NormalizePaging(limit, page int) (int, int) {
	if limit < 1 {
		limit = DefaultLimit
	}
	if page < 1 {
		page = DefaultPage
	}
	return limit, page
}

// Offset is the number of rows skipped before the given page. It saturates
// at math.MaxInt instead of overflowing.
func Offset(limit, page int) int {
	if limit < 1 || page <= 1 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// TotalPages is ceil(total/limit), never below 1.
func TotalPages(total, limit int) int {
	if total < 1 || limit < 1 {
		return 1
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}

// NewUserPage builds pagination metadata for a page of users.
// totalPages is never below 1, so an empty collection still has page 1.
func NewUserPage(users []entity.User, total, limit, page int) *UserPage {
	totalPages := TotalPages(total, limit)
	counter := Offset(limit, page)
	if counter < math.MaxInt {
		counter++
	}
	p := &UserPage{
		Users:         users,
		TotalUsers:    total,
		Limit:         limit,
		TotalPages:    totalPages,
		PagingCounter: counter,
		Page:          page,
		HasPrevPage:   page > 1,
		HasNextPage:   page < totalPages,
	}
	if p.HasPrevPage {
		prev := page - 1
		p.PrevPage = &prev
	}
	if p.HasNextPage {
		next := page + 1
		p.NextPage = &next
	}
	if p.Users == nil {
		p.Users = []entity.User{}
	}
	return p
}
