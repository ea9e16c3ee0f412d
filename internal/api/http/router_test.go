package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/property-service/internal/api/http/handlers"
	"github.com/spec-kit/property-service/internal/auth"
	"github.com/spec-kit/property-service/internal/config"
	"github.com/spec-kit/property-service/internal/credential"
	"github.com/spec-kit/property-service/internal/directory"
	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/events"
	"github.com/spec-kit/property-service/internal/repository"
	"github.com/spec-kit/property-service/internal/service"
	"github.com/spec-kit/property-service/internal/session"
	"github.com/spec-kit/property-service/internal/testutil"
	apperrors "github.com/spec-kit/property-service/pkg/util"
)

const testPassword = "Secret123"

type apiFixture struct {
	app      *fiber.App
	creds    *testutil.Credentials
	tokens   *testutil.TokenStore
	admins   *testutil.Admins
	staff    *testutil.Staff
	users    *testutil.Users
	sessions *session.Registry
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zap.NewNop()
	f := &apiFixture{
		creds:  testutil.NewCredentials(),
		tokens: testutil.NewTokenStore(),
		admins: testutil.NewAdmins(),
		staff:  testutil.NewStaff(),
		users:  testutil.NewUsers(),
	}
	dispatcher := events.NewInMemoryDispatcher(logger)
	provider := credential.NewProvider(config.AuthConfig{
		JWTSecret:               "test-secret",
		AccessTokenTTLMinutes:   60,
		RefreshTokenTTLHours:    24,
		RecoveryTokenTTLMinutes: 30,
		BcryptCost:              bcrypt.MinCost,
	}, credential.Dependencies{
		CredentialRepo: f.creds,
		TokenStore:     f.tokens,
		Dispatcher:     dispatcher,
	})
	dir := directory.New(directory.Dependencies{AdminRepo: f.admins, StaffRepo: f.staff, UserRepo: f.users})
	authenticator := session.NewAuthenticator(provider, dir, nil, logger)
	registry := session.NewRegistry(authenticator, session.NewMemoryStore(), "test.auth", time.Hour, logger)
	registry.Subscribe(dispatcher)
	f.sessions = registry

	properties := service.NewPropertyService(service.PropertyDependencies{PropertyRepo: testutil.NewProperties(), Dispatcher: dispatcher})
	tasks := service.NewTaskService(service.TaskDependencies{TaskRepo: testutil.NewTasks(), Directory: dir, Dispatcher: dispatcher})
	leads := service.NewLeadService(dir, dir, logger)

	f.app = fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return WriteError(c, logger, nil, err)
		},
	})
	RegisterMiddlewares(f.app, logger, nil, 0)
	RegisterRoutes(f.app, RouteConfig{
		Auth:           handlers.NewAuthHandler(registry, provider),
		Properties:     handlers.NewPropertiesHandler(properties),
		Tasks:          handlers.NewTasksHandler(tasks, nil),
		Admin:          handlers.NewAdminHandler(leads, dir),
		AuthMiddleware: auth.NewAuthMiddleware(provider, dir),
	})
	return f
}

func (f *apiFixture) identity(t *testing.T, email string) string {
	t.Helper()
	hash, err := auth.HashPassword(testPassword, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	confirmed := time.Now()
	cred := &repository.Credential{
		Identity:     domain.Identity{Email: email, Metadata: domain.IdentityMetadata{Name: email}, EmailConfirmedAt: &confirmed},
		PasswordHash: hash,
	}
	if err := f.creds.Create(context.Background(), cred); err != nil {
		t.Fatalf("create credential: %v", err)
	}
	return cred.Identity.ID
}

type result struct {
	status int
	body   map[string]any
	header func(string) string
}

func (f *apiFixture) do(t *testing.T, method, path, token string, payload any) result {
	t.Helper()
	return f.send(t, method, path, token, "", payload)
}

func (f *apiFixture) send(t *testing.T, method, path, token, client string, payload any) result {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if client != "" {
		req.Header.Set(handlers.HeaderClientID, client)
	}
	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := result{status: resp.StatusCode, header: resp.Header.Get}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out.body); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return out
}

func (f *apiFixture) signIn(t *testing.T, role domain.Role, email string) string {
	t.Helper()
	res := f.do(t, fiber.MethodPost, "/api/auth/"+string(role)+"/sign-in", "", map[string]string{
		"identifier": email,
		"password":   testPassword,
	})
	if res.status != fiber.StatusOK {
		t.Fatalf("sign-in %s as %s: status %d body %v", email, role, res.status, res.body)
	}
	data := res.body["data"].(map[string]any)
	return data["session"].(map[string]any)["access_token"].(string)
}

func (r result) code() string {
	code, _ := r.body["code"].(string)
	return code
}

func (r result) data() map[string]any {
	data, _ := r.body["data"].(map[string]any)
	return data
}

func TestPrivilegedRoutesRequireRole(t *testing.T) {
	f := newAPIFixture(t)
	adminID := f.identity(t, "admin@example.com")
	f.admins.Put(domain.AdminProfile{ID: adminID, Name: "Ada"})
	f.identity(t, "user@example.com")

	adminToken := f.signIn(t, domain.RoleAdmin, "admin@example.com")
	userToken := f.signIn(t, domain.RoleUser, "user@example.com")

	tests := []struct {
		name       string
		token      string
		authHeader string
		wantStatus int
		wantCode   string
	}{
		{name: "missing header", wantStatus: fiber.StatusUnauthorized, wantCode: apperrors.CodeMissingAuth},
		{name: "garbage token", token: "not-a-jwt", wantStatus: fiber.StatusUnauthorized, wantCode: apperrors.CodeInvalidToken},
		{name: "user token", token: userToken, wantStatus: fiber.StatusForbidden, wantCode: apperrors.CodeForbidden},
		{name: "admin token", token: adminToken, wantStatus: fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.do(t, fiber.MethodGet, "/api/admin/leads", tt.token, nil)
			if res.status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", res.status, tt.wantStatus, res.body)
			}
			if tt.wantCode != "" && res.code() != tt.wantCode {
				t.Fatalf("code = %q, want %q", res.code(), tt.wantCode)
			}
		})
	}
}

func TestRevokedAdminLosesAccessImmediately(t *testing.T) {
	f := newAPIFixture(t)
	adminID := f.identity(t, "admin@example.com")
	f.admins.Put(domain.AdminProfile{ID: adminID, Name: "Ada"})
	token := f.signIn(t, domain.RoleAdmin, "admin@example.com")

	if res := f.do(t, fiber.MethodGet, "/api/admin/excluded-ids", token, nil); res.status != fiber.StatusOK {
		t.Fatalf("status = %d", res.status)
	}
	f.admins.Remove(adminID)
	if res := f.do(t, fiber.MethodGet, "/api/admin/excluded-ids", token, nil); res.status != fiber.StatusForbidden {
		t.Fatalf("revoked admin should get 403, got %d", res.status)
	}
}

func TestSignInRejectsWrongRole(t *testing.T) {
	f := newAPIFixture(t)
	f.identity(t, "user@example.com")

	res := f.do(t, fiber.MethodPost, "/api/auth/admin/sign-in", "", map[string]string{
		"identifier": "user@example.com",
		"password":   testPassword,
	})
	if res.status != fiber.StatusForbidden || res.code() != apperrors.CodeNotAuthorizedForRole {
		t.Fatalf("got %d %v", res.status, res.body)
	}

	res = f.do(t, fiber.MethodPost, "/api/auth/root/sign-in", "", map[string]string{"identifier": "x@example.com", "password": "y"})
	if res.status != fiber.StatusNotFound {
		t.Fatalf("unknown role should be 404, got %d", res.status)
	}
}

func TestSignInEchoesClientID(t *testing.T) {
	f := newAPIFixture(t)
	f.identity(t, "user@example.com")

	res := f.do(t, fiber.MethodPost, "/api/auth/user/sign-in", "", map[string]string{
		"identifier": "user@example.com",
		"password":   testPassword,
	})
	if res.status != fiber.StatusOK {
		t.Fatalf("status = %d", res.status)
	}
	if res.header(handlers.HeaderClientID) == "" {
		t.Fatal("expected a minted client id header")
	}
}

func TestProfileForUnknownClientCreatesNoManager(t *testing.T) {
	f := newAPIFixture(t)

	for i := 0; i < 50; i++ {
		res := f.do(t, fiber.MethodGet, "/api/auth/user/profile", "", nil)
		if res.status != fiber.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", res.status)
		}
	}
	if n := f.sessions.Len(); n != 0 {
		t.Fatalf("registry holds %d managers after anonymous profile calls", n)
	}
}

func TestProfileOmitsRefreshToken(t *testing.T) {
	f := newAPIFixture(t)
	f.identity(t, "pat@example.com")

	signIn := f.send(t, fiber.MethodPost, "/api/auth/user/sign-in", "", "pat-phone", map[string]string{
		"identifier": "pat@example.com",
		"password":   testPassword,
	})
	if signIn.status != fiber.StatusOK {
		t.Fatalf("sign-in status = %d", signIn.status)
	}

	res := f.send(t, fiber.MethodGet, "/api/auth/user/profile", "", "pat-phone", nil)
	if res.status != fiber.StatusOK {
		t.Fatalf("profile status = %d body %v", res.status, res.body)
	}
	sess := res.data()["session"].(map[string]any)
	if sess["access_token"] == "" || sess["access_token"] == nil {
		t.Fatal("expected an access token")
	}
	if _, ok := sess["refresh_token"]; ok {
		t.Fatalf("profile must not expose the refresh token: %v", sess)
	}
}

func TestPasswordResetRequiresTokenOnSameClient(t *testing.T) {
	f := newAPIFixture(t)
	f.identity(t, "vic@example.com")
	reset := map[string]string{"email": "vic@example.com"}

	for _, client := range []string{"other-browser", "vic-phone"} {
		res := f.send(t, fiber.MethodPost, "/api/auth/user/password/reset-request", "", client, reset)
		if res.status != fiber.StatusAccepted {
			t.Fatalf("reset-request from %s: status %d", client, res.status)
		}
	}
	tokens := f.tokens.Tokens(repository.TokenRecovery)
	if len(tokens) == 0 {
		t.Fatal("expected a recovery token")
	}
	res := f.send(t, fiber.MethodPost, "/api/auth/user/password/recover", "", "vic-phone", map[string]string{"token": tokens[0]})
	if res.status != fiber.StatusOK {
		t.Fatalf("recover status = %d body %v", res.status, res.body)
	}

	res = f.send(t, fiber.MethodPost, "/api/auth/user/password/reset", "", "other-browser", map[string]string{"password": "Hijacked99"})
	if res.code() != apperrors.CodeRecoveryRequired {
		t.Fatalf("reset from other client: status %d code %q", res.status, res.code())
	}
	res = f.send(t, fiber.MethodPost, "/api/auth/user/password/reset", "", "vic-phone", map[string]string{"password": "NewSecret9"})
	if res.status != fiber.StatusNoContent {
		t.Fatalf("reset from token holder: status %d body %v", res.status, res.body)
	}
}

func TestStaffCannotMoveAnotherStaffTask(t *testing.T) {
	f := newAPIFixture(t)
	adminID := f.identity(t, "admin@example.com")
	f.admins.Put(domain.AdminProfile{ID: adminID, Name: "Ada"})
	s1 := f.identity(t, "s1@example.com")
	s2 := f.identity(t, "s2@example.com")
	f.staff.Put(domain.StaffProfile{ID: s1, Name: "Sid", IsActive: true})
	f.staff.Put(domain.StaffProfile{ID: s2, Name: "Sue", IsActive: true})

	adminToken := f.signIn(t, domain.RoleAdmin, "admin@example.com")
	created := f.do(t, fiber.MethodPost, "/api/tasks", adminToken, map[string]any{
		"title":       "Call lead",
		"assigned_to": s1,
		"priority":    "high",
	})
	if created.status != fiber.StatusCreated {
		t.Fatalf("create task: %d %v", created.status, created.body)
	}
	taskID := created.data()["id"].(string)

	s2Token := f.signIn(t, domain.RoleStaff, "s2@example.com")
	res := f.do(t, fiber.MethodPut, "/api/tasks/"+taskID+"/status", s2Token, map[string]string{"status": "completed"})
	if res.status != fiber.StatusNotFound {
		t.Fatalf("other staff should get 404, got %d %v", res.status, res.body)
	}

	s1Token := f.signIn(t, domain.RoleStaff, "s1@example.com")
	res = f.do(t, fiber.MethodPut, "/api/tasks/"+taskID+"/status", s1Token, map[string]string{"status": "completed"})
	if res.status != fiber.StatusOK || res.data()["status"] != "completed" || res.data()["completed_at"] == nil {
		t.Fatalf("assignee update failed: %d %v", res.status, res.body)
	}

	res = f.do(t, fiber.MethodPost, "/api/tasks", s1Token, map[string]any{"title": "x", "assigned_to": s1})
	if res.status != fiber.StatusForbidden {
		t.Fatalf("staff cannot create tasks, got %d", res.status)
	}
}

func TestModerationOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	adminID := f.identity(t, "admin@example.com")
	f.admins.Put(domain.AdminProfile{ID: adminID, Name: "Ada"})
	f.identity(t, "owner@example.com")
	f.identity(t, "other@example.com")

	owner := f.signIn(t, domain.RoleUser, "owner@example.com")
	other := f.signIn(t, domain.RoleUser, "other@example.com")
	admin := f.signIn(t, domain.RoleAdmin, "admin@example.com")

	submitted := f.do(t, fiber.MethodPost, "/api/properties", owner, map[string]any{
		"title":        "Garden flat",
		"location":     "Northside",
		"price":        180000,
		"listing_type": "sale",
	})
	if submitted.status != fiber.StatusCreated || submitted.data()["approval_status"] != "pending" {
		t.Fatalf("submit: %d %v", submitted.status, submitted.body)
	}
	id := submitted.data()["id"].(string)

	public := f.do(t, fiber.MethodGet, "/api/properties", "", nil)
	if list, _ := public.body["data"].([]any); len(list) != 0 {
		t.Fatalf("pending listing should not be public: %v", public.body)
	}
	if res := f.do(t, fiber.MethodGet, "/api/properties/"+id, "", nil); res.status != fiber.StatusNotFound {
		t.Fatalf("anonymous read of pending listing: %d", res.status)
	}
	if res := f.do(t, fiber.MethodGet, "/api/properties/"+id, other, nil); res.status != fiber.StatusNotFound {
		t.Fatalf("other user read of pending listing: %d", res.status)
	}
	if res := f.do(t, fiber.MethodGet, "/api/properties/"+id, owner, nil); res.status != fiber.StatusOK {
		t.Fatalf("owner read of pending listing: %d", res.status)
	}
	if res := f.do(t, fiber.MethodGet, "/api/properties/"+id, admin, nil); res.status != fiber.StatusOK {
		t.Fatalf("admin read of pending listing: %d", res.status)
	}

	if res := f.do(t, fiber.MethodPost, "/api/admin/properties/"+id+"/reject", owner, map[string]string{"reason": "x"}); res.status != fiber.StatusForbidden {
		t.Fatalf("users cannot moderate, got %d", res.status)
	}
	rejected := f.do(t, fiber.MethodPost, "/api/admin/properties/"+id+"/reject", admin, map[string]string{"reason": "missing documents"})
	if rejected.status != fiber.StatusOK || rejected.data()["rejection_reason"] != "missing documents" {
		t.Fatalf("reject: %d %v", rejected.status, rejected.body)
	}

	dashboard := f.do(t, fiber.MethodGet, "/api/me/properties", owner, nil)
	counts, _ := dashboard.data()["counts"].(map[string]any)
	if dashboard.status != fiber.StatusOK || counts["rejected"] != float64(1) {
		t.Fatalf("dashboard: %d %v", dashboard.status, dashboard.body)
	}
}

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	f := newAPIFixture(t)
	res := f.do(t, fiber.MethodGet, "/nope", "", nil)
	if res.status != fiber.StatusNotFound {
		t.Fatalf("status = %d", res.status)
	}
	if _, ok := res.body["error"].(string); !ok || res.code() != apperrors.CodeNotFound {
		t.Fatalf("unexpected body %v", res.body)
	}
}

func TestMalformedIDsAreClientErrors(t *testing.T) {
	f := newAPIFixture(t)
	adminID := f.identity(t, "admin@example.com")
	f.admins.Put(domain.AdminProfile{ID: adminID, Name: "Ada"})
	adminToken := f.signIn(t, domain.RoleAdmin, "admin@example.com")

	cases := []struct {
		name       string
		method     string
		path       string
		payload    any
		wantStatus int
		wantCode   string
	}{
		{"property", fiber.MethodGet, "/api/properties/abc", nil, fiber.StatusNotFound, apperrors.CodeNotFound},
		{"task delete", fiber.MethodDelete, "/api/tasks/abc", nil, fiber.StatusNotFound, apperrors.CodeNotFound},
		{"assignee", fiber.MethodPost, "/api/tasks", map[string]any{"title": "x", "assigned_to": "abc"}, fiber.StatusBadRequest, apperrors.CodeInvalidAssignee},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			res := f.do(t, tt.method, tt.path, adminToken, tt.payload)
			if res.status != tt.wantStatus || res.code() != tt.wantCode {
				t.Fatalf("status %d code %q body %v", res.status, res.code(), res.body)
			}
		})
	}
}
