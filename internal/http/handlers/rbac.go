package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dresguerra/admingate/internal/http/dto"
	httperrors "github.com/dresguerra/admingate/internal/http/errors"
	"github.com/dresguerra/admingate/internal/rbac"
)

// RBACHandler atiende los endpoints del ledger rol↔permiso.
type RBACHandler struct {
	ledger *rbac.Ledger
}

// NewRBACHandler crea el handler.
func NewRBACHandler(ledger *rbac.Ledger) *RBACHandler {
	return &RBACHandler{ledger: ledger}
}

// Assign maneja POST /v1/roles-permissions/assign.
func (h *RBACHandler) Assign(w http.ResponseWriter, r *http.Request) {
	roleID, permIDs, ok := h.readRequest(w, r)
	if !ok {
		return
	}
	if err := h.ledger.Assign(r.Context(), roleID, permIDs); err != nil {
		httperrors.WriteDomain(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "permisos asignados"})
}

// Replace maneja PUT /v1/roles-permissions/replace.
func (h *RBACHandler) Replace(w http.ResponseWriter, r *http.Request) {
	roleID, permIDs, ok := h.readRequest(w, r)
	if !ok {
		return
	}
	if err := h.ledger.Replace(r.Context(), roleID, permIDs); err != nil {
		httperrors.WriteDomain(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "permisos reemplazados"})
}

// Remove maneja DELETE /v1/roles-permissions/remove.
func (h *RBACHandler) Remove(w http.ResponseWriter, r *http.Request) {
	roleID, permIDs, ok := h.readRequest(w, r)
	if !ok {
		return
	}
	if err := h.ledger.RemoveSpecific(r.Context(), roleID, permIDs); err != nil {
		httperrors.WriteDomain(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "permisos removidos"})
}

// Clear maneja DELETE /v1/roles-permissions/roles/{roleID}/clear.
func (h *RBACHandler) Clear(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleID")
	if roleID == "" {
		httperrors.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "roleID es requerido")
		return
	}
	if err := h.ledger.ClearAll(r.Context(), roleID); err != nil {
		httperrors.WriteDomain(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "permisos limpiados"})
}

// List maneja GET /v1/roles-permissions/roles/{roleID}/permissions.
func (h *RBACHandler) List(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleID")
	if roleID == "" {
		httperrors.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "roleID es requerido")
		return
	}
	names, err := h.ledger.ListPermissionNames(r.Context(), roleID)
	if err != nil {
		httperrors.WriteDomain(w, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, dto.RolePermissionsResponse{RoleID: roleID, Permissions: names})
}

func (h *RBACHandler) readRequest(w http.ResponseWriter, r *http.Request) (string, []string, bool) {
	var req dto.RolePermissionsRequest
	if !httperrors.ReadJSON(w, r, &req) {
		return "", nil, false
	}
	req.RoleID = strings.TrimSpace(req.RoleID)
	if req.RoleID == "" || len(req.PermissionIDs) == 0 {
		httperrors.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "role_id y permission_ids son requeridos")
		return "", nil, false
	}
	return req.RoleID, req.PermissionIDs, true
}
