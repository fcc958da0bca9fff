package application

import (
	"time"

	"github.com/oksasatya/flowery-users/internal/domain/entity"
)

// UserDTO is the full read-only projection of a user. It never carries the
// password hash or soft-delete bookkeeping.
type UserDTO struct {
	ID             string            `json:"id"`
	FirstName      string            `json:"firstName"`
	LastName       string            `json:"lastName,omitempty"`
	Email          string            `json:"email"`
	BirthDate      *time.Time        `json:"birthDate,omitempty"`
	Role           entity.Role       `json:"role"`
	Cart           string            `json:"cart,omitempty"`
	Documents      []entity.Document `json:"documents"`
	LastConnection *time.Time        `json:"lastConnection,omitempty"`
}

// UserBriefDTO is the list-view projection.
type UserBriefDTO struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Role           entity.Role `json:"role"`
	LastConnection *time.Time  `json:"lastConnection,omitempty"`
}

// NavLinks are present in a UsersPage only when the caller supplied a base URL.
type NavLinks struct {
	FirstLink *string `json:"firstLink"`
	PrevLink  *string `json:"prevLink"`
	NextLink  *string `json:"nextLink"`
	LastLink  *string `json:"lastLink"`
}

// UsersPage is the paginated list returned by ListUsers.
type UsersPage struct {
	Users         []UserBriefDTO `json:"users"`
	TotalUsers    int            `json:"totalUsers"`
	Limit         int            `json:"limit"`
	TotalPages    int            `json:"totalPages"`
	PagingCounter int            `json:"pagingCounter"`
	Page          int            `json:"page"`
	HasPrevPage   bool           `json:"hasPrevPage"`
	HasNextPage   bool           `json:"hasNextPage"`
	PrevPage      *int           `json:"prevPage"`
	NextPage      *int           `json:"nextPage"`
	*NavLinks
}

func ToUserDTO(u *entity.User) UserDTO {
	docs := u.Documents
	if docs == nil {
		docs = []entity.Document{}
	}
	return UserDTO{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		BirthDate:      u.BirthDate,
		Role:           u.Role,
		Cart:           u.Cart,
		Documents:      docs,
		LastConnection: u.LastConnection,
	}
}

func ToUserBriefDTO(u *entity.User) UserBriefDTO {
	return UserBriefDTO{
		ID:             u.ID,
		Name:           u.FullName(),
		Email:          u.Email,
		Role:           u.Role,
		LastConnection: u.LastConnection,
	}
}

func ToUserBriefDTOs(users []entity.User) []UserBriefDTO {
	out := make([]UserBriefDTO, 0, len(users))
	for i := range users {
		out = append(out, ToUserBriefDTO(&users[i]))
	}
	return out
}
