// Package handlers implementa los handlers HTTP del servicio.
package handlers

import (
	"net/http"
	"strings"

	"github.com/dresguerra/admingate/internal/auth"
	"github.com/dresguerra/admingate/internal/http/dto"
	httperrors "github.com/dresguerra/admingate/internal/http/errors"
	"github.com/dresguerra/admingate/internal/http/middlewares"
	jwtx "github.com/dresguerra/admingate/internal/jwt"
)

// AuthHandler atiende los endpoints de autenticación.
type AuthHandler struct {
	svc    *auth.Service
	issuer *jwtx.Issuer
}

// NewAuthHandler crea el handler.
func NewAuthHandler(svc *auth.Service, issuer *jwtx.Issuer) *AuthHandler {
	return &AuthHandler{svc: svc, issuer: issuer}
}

// SignIn maneja POST /v1/auth/signin.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInRequest
	if !httperrors.ReadJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		httperrors.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "username y password son requeridos")
		return
	}

	pair, err := h.svc.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		httperrors.WriteDomain(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, tokenPairResponse(pair))
}

// Refresh maneja POST /v1/auth/refresh. La identidad sale del propio refresh
// token: no requiere un access token vigente.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !httperrors.ReadJSON(w, r, &req) {
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		httperrors.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "refresh_token es requerido")
		return
	}

	sub, err := h.issuer.ParseRefresh(req.RefreshToken)
	if err != nil {
		httperrors.WriteError(w, http.StatusUnauthorized, "REFRESH_TOKEN_INVALID", "refresh token inválido")
		return
	}

	pair, err := h.svc.Refresh(r.Context(), sub, req.RefreshToken)
	if err != nil {
		httperrors.WriteDomain(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, tokenPairResponse(pair))
}

// Logout maneja POST /v1/auth/logout (autenticado).
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middlewares.GetUserID(r.Context())
	if err := h.svc.Logout(r.Context(), userID); err != nil {
		httperrors.WriteDomain(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "sesión cerrada"})
}

// ForgotPassword maneja POST /v1/auth/forgot-password.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if !httperrors.ReadJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		httperrors.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "email es requerido")
		return
	}

	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		httperrors.WriteDomain(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "código de restablecimiento enviado"})
}

// VerifyResetCode maneja POST /v1/auth/verify-reset-code.
func (h *AuthHandler) VerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyResetCodeRequest
	if !httperrors.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		httperrors.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "code es requerido")
		return
	}

	if err := h.svc.VerifyResetCode(r.Context(), strings.TrimSpace(req.Code)); err != nil {
		httperrors.WriteDomain(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "código válido"})
}

// ResetPassword maneja POST /v1/auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !httperrors.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" || req.NewPassword == "" {
		httperrors.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "code y new_password son requeridos")
		return
	}

	if err := h.svc.ResetPassword(r.Context(), strings.TrimSpace(req.Code), req.NewPassword); err != nil {
		httperrors.WriteDomain(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "contraseña restablecida"})
}

// ChangePassword maneja POST /v1/auth/change-password (autenticado).
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if !httperrors.ReadJSON(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		httperrors.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "current_password y new_password son requeridos")
		return
	}

	userID := middlewares.GetUserID(r.Context())
	if err := h.svc.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		httperrors.WriteDomain(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "contraseña actualizada"})
}

func tokenPairResponse(pair *auth.TokenPair) dto.TokenPairResponse {
	return dto.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.Unix(),
		Permissions:  pair.Permissions,
	}
}
