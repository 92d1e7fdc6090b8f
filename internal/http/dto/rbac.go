package dto

// RolePermissionsRequest es el body de assign/replace/remove.
type RolePermissionsRequest struct {
	RoleID        string   `json:"role_id"`
	PermissionIDs []string `json:"permission_ids"`
}

// RolePermissionsResponse es la respuesta de GET roles/{roleID}/permissions.
type RolePermissionsResponse struct {
	RoleID      string   `json:"role_id"`
	Permissions []string `json:"permissions"`
}
