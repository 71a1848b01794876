package auth

import "github.com/mangalife/mangalife-server/pkg/models"

// RegisterPayload represents the registration request body.
type RegisterPayload struct {
	Name     string  `json:"name" mod:"trim" validate:"required,max=100"`
	Email    string  `json:"email" mod:"trim,lcase" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Mobile   *string `json:"mobile" mod:"trim" validate:"omitempty,mobile"`
	Dob      *string `json:"dob" mod:"trim" validate:"omitempty,date"`
}

// LoginPayload represents the login request body.
type LoginPayload struct {
	Email    string `json:"email" mod:"trim,lcase" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}
