// Package dto define los cuerpos de request/response del borde HTTP.
package dto

// SignInRequest es el body de POST /v1/auth/signin.
type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPairResponse es la respuesta de signin y refresh.
type TokenPairResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresAt    int64    `json:"expires_at"` // unix seconds del access token
	Permissions  []string `json:"permissions"`
}

// RefreshRequest es el body de POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordRequest es el body de POST /v1/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// VerifyResetCodeRequest es el body de POST /v1/auth/verify-reset-code.
type VerifyResetCodeRequest struct {
	Code string `json:"code"`
}

// ResetPasswordRequest es el body de POST /v1/auth/reset-password.
type ResetPasswordRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ChangePasswordRequest es el body de POST /v1/auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// MessageResponse es la respuesta genérica de operaciones sin payload.
type MessageResponse struct {
	Message string `json:"message"`
}
