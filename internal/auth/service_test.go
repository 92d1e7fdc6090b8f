package auth_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dresguerra/admingate/internal/auth"
	"github.com/dresguerra/admingate/internal/authz"
	"github.com/dresguerra/admingate/internal/cache"
	"github.com/dresguerra/admingate/internal/domain/autherr"
	"github.com/dresguerra/admingate/internal/domain/repository"
	"github.com/dresguerra/admingate/internal/email"
	jwtx "github.com/dresguerra/admingate/internal/jwt"
	"github.com/dresguerra/admingate/internal/rbac"
	"github.com/dresguerra/admingate/internal/security/password"
	"github.com/dresguerra/admingate/internal/security/token"
)

// ---- fakes ----

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[string]*repository.User
	getHook func() // opcional, corre dentro de GetByID (sincronización en tests)
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*repository.User{}}
}

func (f *fakeUsers) put(u repository.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := u
	f.byID[u.ID] = &cp
}

func (f *fakeUsers) get(id string) repository.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

func (f *fakeUsers) find(match func(*repository.User) bool) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	return f.find(func(u *repository.User) bool { return u.Username == username })
}

func (f *fakeUsers) GetByID(ctx context.Context, userID string) (*repository.User, error) {
	if hook := f.getHook; hook != nil {
		hook()
	}
	return f.find(func(u *repository.User) bool { return u.ID == userID })
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	return f.find(func(u *repository.User) bool { return u.Email == email })
}

func (f *fakeUsers) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	u := repository.User{
		ID:           fmt.Sprintf("u-%d", len(f.byID)+1),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Active:       input.Active,
		RoleID:       input.RoleID,
	}
	f.put(u)
	return &u, nil
}

func (f *fakeUsers) update(userID string, mut func(*repository.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	mut(u)
	return nil
}

func (f *fakeUsers) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	return f.update(userID, func(u *repository.User) { u.PasswordHash = newHash })
}

func (f *fakeUsers) UpdateRefreshTokenHash(ctx context.Context, userID string, hash *string) error {
	return f.update(userID, func(u *repository.User) { u.RefreshTokenHash = hash })
}

func (f *fakeUsers) UpdateRole(ctx context.Context, userID string, roleID *string) error {
	return f.update(userID, func(u *repository.User) { u.RoleID = roleID })
}

// fakeRoles cubre solo las lecturas que usa el Auth Service.
type fakeRoles struct {
	names map[string][]string // roleID -> nombres de permisos
}

func (f *fakeRoles) GetRole(ctx context.Context, roleID string) (*repository.Role, error) {
	if _, ok := f.names[roleID]; !ok {
		return nil, repository.ErrNotFound
	}
	return &repository.Role{ID: roleID}, nil
}

func (f *fakeRoles) GetPermissionsByIDs(ctx context.Context, ids []string) ([]repository.Permission, error) {
	return nil, nil
}

func (f *fakeRoles) GetRolePermissionIDs(ctx context.Context, roleID string) ([]string, error) {
	return nil, nil
}

func (f *fakeRoles) GetRolePermissionNames(ctx context.Context, roleID string) ([]string, error) {
	return f.names[roleID], nil
}

func (f *fakeRoles) WithTx(ctx context.Context, fn func(tx repository.RBACTx) error) error {
	return fmt.Errorf("fakeRoles: WithTx no soportado")
}

type fakeCodes struct {
	mu   sync.Mutex
	seq  int
	rows map[string]repository.ResetCode // id -> row
	now  func() time.Time
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{rows: map[string]repository.ResetCode{}, now: time.Now}
}

func (f *fakeCodes) Create(ctx context.Context, input repository.CreateResetCodeInput) (*repository.ResetCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	rc := repository.ResetCode{
		ID:        fmt.Sprintf("rc-%d", f.seq),
		UserID:    input.UserID,
		Code:      input.Code,
		ExpiresAt: input.ExpiresAt,
		CreatedAt: time.Now(),
	}
	f.rows[rc.ID] = rc
	return &rc, nil
}

// GetByCode replica el contrato del store: gana la vigente más nueva, y si
// todas expiraron, la más nueva (camino de borrar-y-reportar).
func (f *fakeCodes) GetByCode(ctx context.Context, code string) (*repository.ResetCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	better := func(a, b *repository.ResetCode) bool {
		if a.ExpiresAt.After(now) != b.ExpiresAt.After(now) {
			return a.ExpiresAt.After(now)
		}
		return a.CreatedAt.After(b.CreatedAt)
	}
	var best *repository.ResetCode
	for _, rc := range f.rows {
		if rc.Code != code {
			continue
		}
		cp := rc
		if best == nil || better(&cp, best) {
			best = &cp
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (f *fakeCodes) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeCodes) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, rc := range f.rows {
		if rc.ExpiresAt.Before(now) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string // destinatarios
	fail bool
}

func (f *fakeSender) Send(to, subject, htmlBody, textBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("smtp caído")
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ---- arnés ----

type harness struct {
	svc    *auth.Service
	users  *fakeUsers
	codes  *fakeCodes
	perms  *authz.PermissionCache
	sender *fakeSender
	clock  *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	issuer, err := jwtx.NewIssuer("admingate-test", "", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer err: %v", err)
	}

	users := newFakeUsers()
	codes := newFakeCodes()
	sender := &fakeSender{}
	clock := &fakeClock{now: time.Now()}
	codes.now = clock.Now
	perms := authz.NewPermissionCache(cache.NewMemory(time.Minute), time.Minute)

	svc := auth.NewService(auth.Deps{
		Users:      users,
		RBAC:       &fakeRoles{names: map[string][]string{"r1": {"FETCH_ALL_USERS", "MANAGE_ROLES"}}},
		ResetCodes: codes,
		Issuer:     issuer,
		Perms:      perms,
		Mail:       email.NewService(sender),
		ResetTTL:   15 * time.Minute,
		Now:        clock.Now,
	})

	return &harness{svc: svc, users: users, codes: codes, perms: perms, sender: sender, clock: clock}
}

func (h *harness) addUser(t *testing.T, id, username, emailAddr, plain string, active bool, roleID *string) {
	t.Helper()
	hash, err := password.Hash(plain)
	if err != nil {
		t.Fatalf("Hash err: %v", err)
	}
	h.users.put(repository.User{
		ID: id, Username: username, Email: emailAddr,
		PasswordHash: hash, Active: active, RoleID: roleID,
	})
}

func roleR1() *string { r := "r1"; return &r }

// ---- sign-in ----

func TestSignIn_Success(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "u1", "lucia", "lucia@example.com", "clave123", true, roleR1())
	ctx := context.Background()

	pair, err := h.svc.SignIn(ctx, "lucia", "clave123")
	if err != nil {
		t.Fatalf("SignIn err: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("el par debe traer ambos tokens")
	}
	if len(pair.Permissions) != 2 {
		t.Fatalf("permissions: got %v", pair.Permissions)
	}

	// el hash del refresh quedó persistido
	u := h.users.get("u1")
	if u.RefreshTokenHash == nil || !token.HashMatches(pair.RefreshToken, *u.RefreshTokenHash) {
		t.Fatal("el hash almacenado debe corresponder al refresh emitido")
	}

	// la cache quedó escrita antes de retornar
	cached, ok := h.perms.Get(ctx, "u1")
	if !ok || len(cached) != 2 {
		t.Fatalf("cache de permisos: got %v ok=%v", cached, ok)
	}
}

func TestSignIn_GenericInvalidCredentials(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "u1", "lucia", "lucia@example.com", "clave123", true, roleR1())
	ctx := context.Background()

	// usuario inexistente y password incorrecto fallan con el mismo kind
	for _, tc := range []struct{ user, pass string }{
		{"nadie", "clave123"},
		{"lucia", "incorrecta"},
	} {
		_, err := h.svc.SignIn(ctx, tc.user, tc.pass)
		if !autherr.IsKind(err, autherr.KindInvalidCredentials) {
			t.Fatalf("(%s/%s) esperaba INVALID_CREDENTIALS, got %v", tc.user, tc.pass, err)
		}
	}
}

func TestSignIn_InactiveAndRoleless(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "u1", "inactivo", "a@example.com", "clave123", false, roleR1())
	h.addUser(t, "u2", "sinrol", "b@example.com", "clave123", true, nil)
	ctx := context.Background()

	if _, err := h.svc.SignIn(ctx, "inactivo", "clave123"); !autherr.IsKind(err, autherr.KindAccountInactive) {
		t.Fatalf("esperaba ACCOUNT_INACTIVE, got %v", err)
	}
	if _, err := h.svc.SignIn(ctx, "sinrol", "clave123"); !autherr.IsKind(err, autherr.KindNoRoleAssigned) {
		t.Fatalf("esperaba NO_ROLE_ASSIGNED, got %v", err)
	}
}

// ---- refresh ----

func TestRefresh_RotationInvalidatesOldToken(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "u1", "lucia", "lucia@example.com", "clave123", true, roleR1())
	ctx := context.Background()

	first, err := h.svc.SignIn(ctx, "lucia", "clave123")
	if err != nil {
		t.Fatalf("SignIn err: %v", err)
	}

	second, err := h.svc.Refresh(ctx, "u1", first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh err: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("la rotación debe emitir un refresh token nuevo")
	}

	// reusar el token ya rotado falla
	_, err = h.svc.Refresh(ctx, "u1", first.RefreshToken)
	if !autherr.IsKind(err, autherr.KindRefreshTokenInvalid) {
		t.Fatalf("esperaba REFRESH_TOKEN_INVALID, got %v", err)
	}

	// el nuevo sigue siendo válido
	if _, err := h.svc.Refresh(ctx, "u1", second.RefreshToken); err != nil {
		t.Fatalf("el refresh vigente debe funcionar: %v", err)
	}
}

func TestRefresh_NoStoredHash(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "u1", "lucia", "lucia@example.com", "clave123", true, roleR1())
	ctx := context.Background()

	pair, err := h.svc.SignIn(ctx, "lucia", "clave123")
	if err != nil {
		t.Fatalf("SignIn err: %v", err)
	}
	if err := h.svc.Logout(ctx, "u1"); err != nil {
		t.Fatalf("Logout err: %v", err)
	}

	_, err = h.svc.Refresh(ctx, "u1", pair.RefreshToken)
	if !autherr.IsKind(err, autherr.KindRefreshTokenMissing) {
		t.Fatalf("esperaba REFRESH_TOKEN_MISSING, got %v", err)
	}
}

func TestRefresh_ConcurrentFailsFast(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "u1", "lucia", "lucia@example.com", "clave123", true, roleR1())
	ctx := context.Background()

	pair, err := h.svc.SignIn(ctx, "lucia", "clave123")
	if err != nil {
		t.Fatalf("SignIn err: %v", err)
	}

	// El hook frena el primer Refresh adentro de la región crítica para que
	// el segundo llegue con el marcador tomado.
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.users.getHook = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.Refresh(ctx, "u1", pair.RefreshToken)
		done <- err
	}()

	<-entered
	_, err = h.svc.Refresh(ctx, "u1", pair.RefreshToken)
	if !autherr.IsKind(err, autherr.KindRefreshInProgress) {
		t.Fatalf("esperaba REFRESH_TOKEN_ALREADY_IN_PROGRESS, got %v", err)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("el primer refresh debía completar: %v", err)
	}

	// liberado el marcador, un refresh posterior con el token vigente funciona
	h.users.getHook = nil
	u := h.users.get("u1")
	if u.RefreshTokenHash == nil {
		t.Fatal("debe quedar un hash almacenado tras la rotación")
	}
}

// ---- logout ----

func TestLogout_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "u1", "lucia", "lucia@example.com", "clave123", true, roleR1())
	ctx := context.Background()

	if _, err := h.svc.SignIn(ctx, "lucia", "clave123"); err != nil {
		t.Fatalf("SignIn err: %v", err)
	}
	if err := h.svc.Logout(ctx, "u1"); err != nil {
		t.Fatalf("Logout err: %v", err)
	}

	u := h.users.get("u1")
	if u.RefreshTokenHash != nil {
		t.Fatal("Logout debe limpiar el hash del refresh")
	}
	if _, ok := h.perms.Get(ctx, "u1"); ok {
		t.Fatal("Logout debe desalojar la cache de permisos")
	}

	// repetirlo, o hacerlo sobre un desconocido, no es error
	if err := h.svc.Logout(ctx, "u1"); err != nil {
		t.Fatalf("Logout repetido err: %v", err)
	}
	if err := h.svc.Logout(ctx, "ghost"); err != nil {
		t.Fatalf("Logout de desconocido err: %v", err)
	}
}

// ---- reset de contraseña ----

func TestPasswordReset_FullLifecycle(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "u1", "lucia", "lucia@example.com", "vieja123", true, roleR1())
	ctx := context.Background()

	if err := h.svc.RequestPasswordReset(ctx, "nadie@example.com"); !autherr.IsKind(err, autherr.KindNotFound) {
		t.Fatalf("esperaba NOT_FOUND, got %v", err)
	}

	if err := h.svc.RequestPasswordReset(ctx, "lucia@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset err: %v", err)
	}
	if len(h.sender.sent) != 1 || h.sender.sent[0] != "lucia@example.com" {
		t.Fatalf("debía enviarse un correo a lucia, got %v", h.sender.sent)
	}

	// recuperar el código generado desde el fake
	var codeStr string
	for _, rc := range h.codes.rows {
		codeStr = rc.Code
	}
	if len(codeStr) != 6 {
		t.Fatalf("código de 6 dígitos esperado, got %q", codeStr)
	}

	// verificación no destructiva
	if err := h.svc.VerifyResetCode(ctx, codeStr); err != nil {
		t.Fatalf("VerifyResetCode err: %v", err)
	}
	if err := h.svc.VerifyResetCode(ctx, codeStr); err != nil {
		t.Fatalf("verificar no consume el código: %v", err)
	}
	if err := h.svc.VerifyResetCode(ctx, "000000"); !autherr.IsKind(err, autherr.KindInvalidCode) {
		t.Fatalf("esperaba INVALID_RESET_CODE, got %v", err)
	}

	// consumo
	if err := h.svc.ResetPassword(ctx, codeStr, "nueva456"); err != nil {
		t.Fatalf("ResetPassword err: %v", err)
	}
	if _, err := h.svc.SignIn(ctx, "lucia", "nueva456"); err != nil {
		t.Fatalf("la nueva contraseña debe funcionar: %v", err)
	}
	if _, err := h.svc.SignIn(ctx, "lucia", "vieja123"); !autherr.IsKind(err, autherr.KindInvalidCredentials) {
		t.Fatalf("la vieja contraseña no debe funcionar: %v", err)
	}
	// single-use
	if err := h.svc.ResetPassword(ctx, codeStr, "otra789"); !autherr.IsKind(err, autherr.KindInvalidCode) {
		t.Fatalf("el código consumido debe ser inválido, got %v", err)
	}
}

func TestPasswordReset_Expiry(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "u1", "lucia", "lucia@example.com", "clave123", true, roleR1())
	ctx := context.Background()

	if err := h.svc.RequestPasswordReset(ctx, "lucia@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset err: %v", err)
	}
	var codeStr string
	for _, rc := range h.codes.rows {
		codeStr = rc.Code
	}

	// 16 minutos después: expirado, y el registro se elimina en el acto
	h.clock.Advance(16 * time.Minute)
	if err := h.svc.VerifyResetCode(ctx, codeStr); !autherr.IsKind(err, autherr.KindCodeExpired) {
		t.Fatalf("esperaba RESET_CODE_EXPIRED, got %v", err)
	}
	// la segunda verificación ya no encuentra el registro
	if err := h.svc.VerifyResetCode(ctx, codeStr); !autherr.IsKind(err, autherr.KindInvalidCode) {
		t.Fatalf("esperaba INVALID_RESET_CODE tras la limpieza, got %v", err)
	}
}

func TestResetPassword_ReChecksExpiry(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "u1", "lucia", "lucia@example.com", "clave123", true, roleR1())
	ctx := context.Background()

	if err := h.svc.RequestPasswordReset(ctx, "lucia@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset err: %v", err)
	}
	var codeStr string
	for _, rc := range h.codes.rows {
		codeStr = rc.Code
	}

	// el camino directo (sin VerifyResetCode previo) también valida expiración
	h.clock.Advance(20 * time.Minute)
	if err := h.svc.ResetPassword(ctx, codeStr, "nueva456"); !autherr.IsKind(err, autherr.KindCodeExpired) {
		t.Fatalf("esperaba RESET_CODE_EXPIRED, got %v", err)
	}
	if _, err := h.svc.SignIn(ctx, "lucia", "clave123"); err != nil {
		t.Fatalf("la contraseña original debe seguir vigente: %v", err)
	}
}

func TestRequestPasswordReset_MailFailureDoesNotRollBack(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "u1", "lucia", "lucia@example.com", "clave123", true, roleR1())
	h.sender.fail = true
	ctx := context.Background()

	// best-effort: la falla de entrega no revierte la creación del código
	if err := h.svc.RequestPasswordReset(ctx, "lucia@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset err: %v", err)
	}
	if len(h.codes.rows) != 1 {
		t.Fatalf("el código debe quedar persistido, got %d filas", len(h.codes.rows))
	}
}

func TestCleanupExpiredCodes(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "u1", "lucia", "lucia@example.com", "clave123", true, roleR1())
	ctx := context.Background()

	if err := h.svc.RequestPasswordReset(ctx, "lucia@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset err: %v", err)
	}
	h.clock.Advance(time.Hour)

	n, err := h.svc.CleanupExpiredCodes(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredCodes err: %v", err)
	}
	if n != 1 {
		t.Fatalf("debía eliminar 1 código, got %d", n)
	}
}

func TestPasswordReset_PrefersUnexpiredOnCodeCollision(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "u1", "lucia", "lucia@example.com", "clave123", true, roleR1())
	ctx := context.Background()
	now := h.clock.Now()

	// dos filas con el mismo código: la más nueva expiró, la vieja sigue viva
	h.codes.rows["rc-viejo"] = repository.ResetCode{
		ID: "rc-viejo", UserID: "u1", Code: "424242",
		ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now.Add(-5 * time.Minute),
	}
	h.codes.rows["rc-nuevo"] = repository.ResetCode{
		ID: "rc-nuevo", UserID: "u1", Code: "424242",
		ExpiresAt: now.Add(-time.Minute), CreatedAt: now,
	}

	// gana la vigente, no la más nueva
	if err := h.svc.VerifyResetCode(ctx, "424242"); err != nil {
		t.Fatalf("la colisión debe resolver a la fila vigente: %v", err)
	}
	if err := h.svc.ResetPassword(ctx, "424242", "nueva456"); err != nil {
		t.Fatalf("ResetPassword err: %v", err)
	}
	if _, err := h.svc.SignIn(ctx, "lucia", "nueva456"); err != nil {
		t.Fatalf("la nueva contraseña debe funcionar: %v", err)
	}
}

// ---- staleness de la cache tras mutaciones del ledger ----

// fakeRBACStore soporta las mutaciones del ledger además de las lecturas del
// Auth Service, para cruzar ambos componentes en un mismo test.
type fakeRBACStore struct {
	roles map[string]repository.Role
	perms map[string]repository.Permission
	assoc map[string]map[string]bool // roleID -> set de permIDs
}

func (f *fakeRBACStore) GetRole(ctx context.Context, roleID string) (*repository.Role, error) {
	r, ok := f.roles[roleID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (f *fakeRBACStore) GetPermissionsByIDs(ctx context.Context, ids []string) ([]repository.Permission, error) {
	var out []repository.Permission
	for _, id := range ids {
		if p, ok := f.perms[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRBACStore) GetRolePermissionIDs(ctx context.Context, roleID string) ([]string, error) {
	var out []string
	for id := range f.assoc[roleID] {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeRBACStore) GetRolePermissionNames(ctx context.Context, roleID string) ([]string, error) {
	var out []string
	for id := range f.assoc[roleID] {
		out = append(out, f.perms[id].Name)
	}
	sort.Strings(out)
	return out, nil
}

type fakeRBACStoreTx struct{ *fakeRBACStore }

func (t fakeRBACStoreTx) InsertRolePermissions(ctx context.Context, roleID string, permIDs []string) error {
	set := t.assoc[roleID]
	if set == nil {
		set = map[string]bool{}
		t.assoc[roleID] = set
	}
	for _, id := range permIDs {
		set[id] = true
	}
	return nil
}

func (t fakeRBACStoreTx) DeleteRolePermissions(ctx context.Context, roleID string, permIDs []string) (int, error) {
	n := 0
	for _, id := range permIDs {
		if t.assoc[roleID][id] {
			delete(t.assoc[roleID], id)
			n++
		}
	}
	return n, nil
}

func (t fakeRBACStoreTx) DeleteAllRolePermissions(ctx context.Context, roleID string) (int, error) {
	n := len(t.assoc[roleID])
	delete(t.assoc, roleID)
	return n, nil
}

func (f *fakeRBACStore) WithTx(ctx context.Context, fn func(tx repository.RBACTx) error) error {
	return fn(fakeRBACStoreTx{f})
}

// El guard decide solo contra la cache: una mutación del ledger no se ve
// hasta que la entrada se desaloja o se reescribe en el próximo sign-in o
// refresh. Este test cruza sign-in, guard y ledger de punta a punta.
func TestGuard_StaleAfterLedgerMutationUntilRefresh(t *testing.T) {
	store := &fakeRBACStore{
		roles: map[string]repository.Role{"r1": {ID: "r1", Name: "ADMIN"}},
		perms: map[string]repository.Permission{
			"p1": {ID: "p1", Name: "FETCH_ALL_USERS"},
			"p2": {ID: "p2", Name: "MANAGE_ROLES"},
		},
		assoc: map[string]map[string]bool{"r1": {"p1": true, "p2": true}},
	}

	issuer, err := jwtx.NewIssuer("admingate-test", "", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer err: %v", err)
	}
	perms := authz.NewPermissionCache(cache.NewMemory(time.Minute), time.Minute)
	guard := authz.NewGuard(perms)
	users := newFakeUsers()
	svc := auth.NewService(auth.Deps{
		Users: users, RBAC: store, ResetCodes: newFakeCodes(),
		Issuer: issuer, Perms: perms,
	})
	ledger := rbac.NewLedger(store)

	hash, err := password.Hash("clave123")
	if err != nil {
		t.Fatalf("Hash err: %v", err)
	}
	users.put(repository.User{
		ID: "u1", Username: "lucia", Email: "lucia@example.com",
		PasswordHash: hash, Active: true, RoleID: roleR1(),
	})
	ctx := context.Background()

	pair, err := svc.SignIn(ctx, "lucia", "clave123")
	if err != nil {
		t.Fatalf("SignIn err: %v", err)
	}
	if err := guard.Check(ctx, "u1", "MANAGE_ROLES"); err != nil {
		t.Fatalf("tras el sign-in el guard debe permitir: %v", err)
	}

	if err := ledger.RemoveSpecific(ctx, "r1", []string{"p2"}); err != nil {
		t.Fatalf("RemoveSpecific err: %v", err)
	}

	// la entrada cacheada sobrevive a la mutación: el guard sigue permitiendo
	if err := guard.Check(ctx, "u1", "MANAGE_ROLES"); err != nil {
		t.Fatalf("la cache vieja debe seguir permitiendo: %v", err)
	}

	// el refresh reescribe el snapshot y la decisión cambia
	if _, err := svc.Refresh(ctx, "u1", pair.RefreshToken); err != nil {
		t.Fatalf("Refresh err: %v", err)
	}
	if err := guard.Check(ctx, "u1", "MANAGE_ROLES"); !autherr.IsKind(err, autherr.KindInsufficientPermissions) {
		t.Fatalf("esperaba INSUFFICIENT_PERMISSIONS tras el refresh, got %v", err)
	}
	if err := guard.Check(ctx, "u1", "FETCH_ALL_USERS"); err != nil {
		t.Fatalf("el permiso que sobrevivió debe seguir permitiendo: %v", err)
	}

	// logout desaloja la entrada: sin cache no hay acceso
	if err := svc.Logout(ctx, "u1"); err != nil {
		t.Fatalf("Logout err: %v", err)
	}
	if err := guard.Check(ctx, "u1", "FETCH_ALL_USERS"); !autherr.IsKind(err, autherr.KindPermissionsNotCached) {
		t.Fatalf("esperaba PERMISSIONS_NOT_CACHED tras el logout, got %v", err)
	}
}

// ---- change password ----

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "u1", "lucia", "lucia@example.com", "actual123", true, roleR1())
	ctx := context.Background()

	err := h.svc.ChangePassword(ctx, "u1", "incorrecta", "nueva456")
	if !autherr.IsKind(err, autherr.KindInvalidCurrentPassword) {
		t.Fatalf("esperaba INVALID_CURRENT_PASSWORD, got %v", err)
	}

	if err := h.svc.ChangePassword(ctx, "u1", "actual123", "nueva456"); err != nil {
		t.Fatalf("ChangePassword err: %v", err)
	}
	if _, err := h.svc.SignIn(ctx, "lucia", "nueva456"); err != nil {
		t.Fatalf("la nueva contraseña debe funcionar: %v", err)
	}
}
