// Package auth orquesta el ciclo de vida de credenciales: sign-in, rotación
// de refresh tokens con exclusión mutua por identidad, logout y el ciclo de
// códigos de restablecimiento de contraseña.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dresguerra/admingate/internal/authz"
	"github.com/dresguerra/admingate/internal/domain/autherr"
	"github.com/dresguerra/admingate/internal/domain/repository"
	"github.com/dresguerra/admingate/internal/email"
	"github.com/dresguerra/admingate/internal/jwt"
	"github.com/dresguerra/admingate/internal/observability/logger"
	"github.com/dresguerra/admingate/internal/security/code"
	"github.com/dresguerra/admingate/internal/security/password"
	"github.com/dresguerra/admingate/internal/security/token"
)

// TokenPair es el resultado de un sign-in o refresh exitoso.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // expiración del access token
	Permissions  []string  // snapshot escrito en la cache de permisos
}

// Deps son las dependencias del servicio.
type Deps struct {
	Users      repository.UserRepository
	RBAC       repository.RBACRepository
	ResetCodes repository.ResetCodeRepository
	Issuer     *jwt.Issuer
	Perms      *authz.PermissionCache
	Mail       *email.Service // nil deshabilita el envío de correos

	ResetTTL time.Duration    // vigencia de los códigos de reset (default 15m)
	Now      func() time.Time // inyectable en tests
}

// Service implementa las operaciones de autenticación.
type Service struct {
	users      repository.UserRepository
	rbac       repository.RBACRepository
	resetCodes repository.ResetCodeRepository
	issuer     *jwt.Issuer
	perms      *authz.PermissionCache
	mail       *email.Service

	resetTTL   time.Duration
	now        func() time.Time
	refreshing inflight
}

// NewService construye el servicio.
func NewService(d Deps) *Service {
	if d.ResetTTL <= 0 {
		d.ResetTTL = 15 * time.Minute
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		users:      d.Users,
		rbac:       d.RBAC,
		resetCodes: d.ResetCodes,
		issuer:     d.Issuer,
		perms:      d.Perms,
		mail:       d.Mail,
		resetTTL:   d.ResetTTL,
		now:        d.Now,
	}
}

// SignIn valida credenciales y emite un par de tokens. Falla genérico con
// INVALID_CREDENTIALS tanto para usuario inexistente como para password
// incorrecto: el mensaje nunca distingue cuál de los dos fue.
func (s *Service) SignIn(ctx context.Context, username, plainPassword string) (*TokenPair, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth"), logger.Op("signin"))

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, autherr.New(autherr.KindInvalidCredentials, "credenciales inválidas")
		}
		return nil, autherr.Internal(err)
	}
	if !password.Verify(plainPassword, u.PasswordHash) {
		return nil, autherr.New(autherr.KindInvalidCredentials, "credenciales inválidas")
	}
	if !u.Active {
		return nil, autherr.New(autherr.KindAccountInactive, "la cuenta está inactiva")
	}
	if !u.HasRole() {
		return nil, autherr.New(autherr.KindNoRoleAssigned, "el usuario no tiene rol asignado")
	}

	pair, err := s.issueAndPersist(ctx, u)
	if err != nil {
		return nil, err
	}
	log.Info("sign-in exitoso", logger.UserID(u.ID), logger.Username(u.Username))
	return pair, nil
}

// Refresh rota el par de tokens de una identidad. Solo una rotación por
// identidad puede estar en vuelo: la segunda llamada concurrente falla rápido
// con REFRESH_TOKEN_ALREADY_IN_PROGRESS en lugar de competir por el hash
// almacenado. El marcador se libera en todos los caminos de salida.
func (s *Service) Refresh(ctx context.Context, userID, presented string) (*TokenPair, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth"), logger.Op("refresh"), logger.UserID(userID))

	if !s.refreshing.tryAcquire(userID) {
		return nil, autherr.New(autherr.KindRefreshInProgress,
			"ya hay una rotación de refresh token en curso para esta identidad")
	}
	defer s.refreshing.release(userID)

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, autherr.New(autherr.KindRefreshTokenMissing, "acceso denegado")
		}
		return nil, autherr.Internal(err)
	}
	if u.RefreshTokenHash == nil || *u.RefreshTokenHash == "" {
		return nil, autherr.New(autherr.KindRefreshTokenMissing, "acceso denegado")
	}
	if !u.Active {
		return nil, autherr.New(autherr.KindAccountInactive, "la cuenta está inactiva")
	}
	if !u.HasRole() {
		return nil, autherr.New(autherr.KindNoRoleAssigned, "el usuario no tiene rol asignado")
	}

	// Firma y subject primero, hash almacenado después. Un token rotado deja
	// de coincidir con el hash aunque su firma siga siendo válida.
	sub, err := s.issuer.ParseRefresh(presented)
	if err != nil || sub != u.ID {
		return nil, autherr.New(autherr.KindRefreshTokenInvalid, "refresh token inválido")
	}
	if !token.HashMatches(presented, *u.RefreshTokenHash) {
		return nil, autherr.New(autherr.KindRefreshTokenInvalid, "refresh token inválido")
	}

	pair, err := s.issueAndPersist(ctx, u)
	if err != nil {
		return nil, err
	}
	log.Info("rotación de tokens exitosa")
	return pair, nil
}

// issueAndPersist emite el par, persiste el hash del nuevo refresh token y
// escribe el snapshot de permisos en la cache. La escritura en cache ocurre
// antes de retornar: quien recibe el par tiene garantizada la entrada.
func (s *Service) issueAndPersist(ctx context.Context, u *repository.User) (*TokenPair, error) {
	perms, err := s.rbac.GetRolePermissionNames(ctx, *u.RoleID)
	if err != nil {
		return nil, autherr.Internal(err)
	}
	if perms == nil {
		perms = []string{}
	}

	access, exp, err := s.issuer.IssueAccess(u.ID, u.Username)
	if err != nil {
		return nil, autherr.Internal(err)
	}
	refresh, _, err := s.issuer.IssueRefresh(u.ID, u.Username)
	if err != nil {
		return nil, autherr.Internal(err)
	}

	h := token.SHA256Base64URL(refresh)
	if err := s.users.UpdateRefreshTokenHash(ctx, u.ID, &h); err != nil {
		return nil, autherr.Internal(err)
	}
	if err := s.perms.Set(ctx, u.ID, perms); err != nil {
		return nil, autherr.Internal(err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    exp,
		Permissions:  perms,
	}, nil
}

// Logout limpia el hash del refresh token y desaloja la entrada de la cache
// de permisos. Idempotente: repetirlo (o hacerlo sobre una identidad
// desconocida) no es error.
func (s *Service) Logout(ctx context.Context, userID string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth"), logger.Op("logout"), logger.UserID(userID))

	if err := s.users.UpdateRefreshTokenHash(ctx, userID, nil); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return autherr.Internal(err)
	}
	if err := s.perms.Evict(ctx, userID); err != nil {
		log.Warn("no se pudo desalojar la cache de permisos", logger.Err(err))
	}
	log.Info("logout")
	return nil
}

// RequestPasswordReset genera un código de 6 dígitos con vigencia acotada y
// lo envía por correo. El envío es best-effort: una falla de entrega se
// loguea y no revierte la creación del código.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth"), logger.Op("request_password_reset"))

	u, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return autherr.New(autherr.KindNotFound, "usuario no encontrado")
		}
		return autherr.Internal(err)
	}

	c, err := code.NewResetCode()
	if err != nil {
		return autherr.Internal(err)
	}
	_, err = s.resetCodes.Create(ctx, repository.CreateResetCodeInput{
		UserID:    u.ID,
		Code:      c,
		ExpiresAt: s.now().Add(s.resetTTL),
	})
	if err != nil {
		return autherr.Internal(err)
	}

	if s.mail != nil {
		if err := s.mail.SendResetCode(u.Email, c); err != nil {
			log.Warn("no se pudo enviar el correo de reset", logger.UserID(u.ID), logger.Err(err))
		}
	}
	log.Info("código de reset generado", logger.UserID(u.ID))
	return nil
}

// VerifyResetCode verifica un código sin consumirlo. Un código expirado se
// elimina en el acto: verificarlo de nuevo falla con INVALID_RESET_CODE,
// no con RESET_CODE_EXPIRED.
func (s *Service) VerifyResetCode(ctx context.Context, c string) error {
	rc, err := s.lookupCode(ctx, c)
	if err != nil {
		return err
	}
	return s.checkExpiry(ctx, rc)
}

// ResetPassword consume un código y persiste la nueva contraseña hasheada.
// Re-verifica la expiración acá también: el camino directo que salteó
// VerifyResetCode no puede usar un código vencido.
func (s *Service) ResetPassword(ctx context.Context, c, newPassword string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth"), logger.Op("reset_password"))

	rc, err := s.lookupCode(ctx, c)
	if err != nil {
		return err
	}
	if err := s.checkExpiry(ctx, rc); err != nil {
		return err
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return autherr.Internal(err)
	}
	if err := s.users.UpdatePasswordHash(ctx, rc.UserID, hash); err != nil {
		return autherr.Internal(err)
	}
	if err := s.resetCodes.Delete(ctx, rc.ID); err != nil {
		log.Warn("no se pudo eliminar el código consumido", logger.Err(err))
	}
	log.Info("contraseña restablecida", logger.UserID(rc.UserID))
	return nil
}

// ChangePassword cambia la contraseña verificando primero la actual.
func (s *Service) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth"), logger.Op("change_password"), logger.UserID(userID))

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return autherr.New(autherr.KindNotFound, "usuario no encontrado")
		}
		return autherr.Internal(err)
	}
	if !password.Verify(current, u.PasswordHash) {
		return autherr.New(autherr.KindInvalidCurrentPassword, "la contraseña actual no es correcta")
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return autherr.Internal(err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return autherr.Internal(err)
	}
	log.Info("contraseña cambiada")
	return nil
}

// CleanupExpiredCodes elimina los códigos vencidos. Pensado para correr
// periódicamente desde el proceso servidor.
func (s *Service) CleanupExpiredCodes(ctx context.Context) (int, error) {
	return s.resetCodes.DeleteExpired(ctx, s.now())
}

func (s *Service) lookupCode(ctx context.Context, c string) (*repository.ResetCode, error) {
	rc, err := s.resetCodes.GetByCode(ctx, c)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, autherr.New(autherr.KindInvalidCode, "código de restablecimiento inválido")
		}
		return nil, autherr.Internal(err)
	}
	return rc, nil
}

func (s *Service) checkExpiry(ctx context.Context, rc *repository.ResetCode) error {
	if s.now().After(rc.ExpiresAt) {
		if err := s.resetCodes.Delete(ctx, rc.ID); err != nil {
			logger.From(ctx).Warn("no se pudo eliminar el código expirado",
				logger.Component("auth"), logger.Err(err))
		}
		return autherr.New(autherr.KindCodeExpired, "el código de restablecimiento expiró")
	}
	return nil
}
