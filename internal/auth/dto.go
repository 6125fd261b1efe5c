package auth

import "strings"

const minPasswordLength = 8

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() error {
	if d.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	if d.Password == "" {
		return ValidationError{Msg: "password is required"}
	}
	return nil
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d RefreshTokenDTO) Validate() error {
	if d.RefreshToken == "" {
		return ValidationError{Msg: "refresh_token is required"}
	}
	return nil
}

// LogoutDTO carries the refresh credential to revoke. The field is
// optional so logout can never fail on a missing token.
type LogoutDTO struct {
	RefreshToken string `json:"refresh_token"`
}

type RegisterDTO struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (d RegisterDTO) Validate() error {
	if d.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	if !strings.Contains(d.Email, "@") {
		return ValidationError{Msg: "email is invalid"}
	}
	if len(d.Password) < minPasswordLength {
		return ValidationError{Msg: "password must be at least 8 characters"}
	}
	return nil
}

type PasswordResetRequestDTO struct {
	Email string `json:"email"`
}

func (d PasswordResetRequestDTO) Validate() error {
	if d.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	return nil
}

type PasswordResetConfirmDTO struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (d PasswordResetConfirmDTO) Validate() error {
	if d.Token == "" {
		return ValidationError{Msg: "token is required"}
	}
	if len(d.NewPassword) < minPasswordLength {
		return ValidationError{Msg: "new_password must be at least 8 characters"}
	}
	return nil
}

type ChangePasswordDTO struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (d ChangePasswordDTO) Validate() error {
	if d.OldPassword == "" {
		return ValidationError{Msg: "old_password is required"}
	}
	if len(d.NewPassword) < minPasswordLength {
		return ValidationError{Msg: "new_password must be at least 8 characters"}
	}
	return nil
}
