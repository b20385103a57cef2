package http

import (
	"time"

	"github.com/njprem/tours-auth-api/internal/domain"
)

// UserResponse is the public projection of an account. It never carries the
// password digest, reset fields or the active flag.
type UserResponse struct {
	ID        string    `json:"id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Name      string    `json:"name" example:"Leo Gillespie"`
	Email     string    `json:"email" example:"leo@example.io"`
	Photo     string    `json:"photo" example:"default.jpg"`
	Role      string    `json:"role" example:"user"`
	CreatedAt time.Time `json:"createdAt" example:"2024-01-01T12:00:00Z"`
	UpdatedAt time.Time `json:"updatedAt" example:"2024-01-02T09:30:00Z"`
}

// SessionResponse is returned by every endpoint that issues a session.
type SessionResponse struct {
	Status string `json:"status" example:"success"`
	Token  string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Data   struct {
		User UserResponse `json:"user"`
	} `json:"data"`
}

type UsersMeta struct {
	Limit   int `json:"limit" example:"50"`
	Offset  int `json:"offset" example:"0"`
	Results int `json:"results" example:"2"`
}

type SignupRequest struct {
	Name            string `json:"name" form:"name" example:"Leo Gillespie"`
	Email           string `json:"email" form:"email" example:"leo@example.io"`
	Password        string `json:"password" form:"password" example:"pass1234"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm" example:"pass1234"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" example:"leo@example.io"`
	Password string `json:"password" form:"password" example:"pass1234"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email" example:"leo@example.io"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" form:"password" example:"newpass1234"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm" example:"newpass1234"`
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" form:"passwordCurrent" example:"pass1234"`
	Password        string `json:"password" form:"password" example:"newpass1234"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm" example:"newpass1234"`
}

// UpdateMeRequest lists the password fields only so that their presence can
// be rejected.
type UpdateMeRequest struct {
	Name            *string `json:"name" form:"name"`
	Email           *string `json:"email" form:"email"`
	Password        *string `json:"password" form:"password"`
	PasswordConfirm *string `json:"passwordConfirm" form:"passwordConfirm"`
}

func toUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		Photo:     user.Photo,
		Role:      user.Role.String(),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func toUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return out
}
