package handlers

import (
	"time"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
)

// userDTO is the public shape of a user. The password hash never leaves the service.
type userDTO struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	BirthDate   string    `json:"birth_date,omitempty"`
	City        string    `json:"city"`
	Country     string    `json:"country"`
	Avatar      string    `json:"avatar"`
	Company     string    `json:"company"`
	JobPosition string    `json:"job_position"`
	Mobile      string    `json:"mobile"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toUserDTO(u *entity.User) userDTO {
	d := userDTO{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Role:        u.Role.String(),
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		City:        u.City,
		Country:     u.Country,
		Avatar:      u.Avatar,
		Company:     u.Company,
		JobPosition: u.JobPosition,
		Mobile:      u.Mobile,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if u.BirthDate != nil {
		d.BirthDate = u.BirthDate.Format("2006-01-02")
	}
	return d
}

func toUserDTOs(us []*entity.User) []userDTO {
	out := make([]userDTO, 0, len(us))
	for _, u := range us {
		out = append(out, toUserDTO(u))
	}
	return out
}
