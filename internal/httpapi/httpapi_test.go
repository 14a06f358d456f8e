package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agamustafayev/kisi-geyim-barkod/internal/domain"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/service"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, *service.Service) {
	t.Helper()
	svc := service.New(memory.New())
	auth := NewAuthManager("test-secret", time.Hour)
	return NewServer(svc, auth), svc
}

func login(t *testing.T, srv *Server, username, password string) string {
	t.Helper()
	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("empty access token")
	}
	return resp.AccessToken
}

func TestLoginAndTokenRoundTrip(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()
	if _, err := svc.CreateUser(ctx, domain.UserCreateRequest{
		Username: "boss", Password: "secret1", Role: domain.RoleAdmin,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	token := login(t, srv, "boss", "secret1")

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authorized list status = %d", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, svc := newTestServer(t)
	if _, err := svc.CreateUser(context.Background(), domain.UserCreateRequest{
		Username: "boss", Password: "secret1", Role: domain.RoleAdmin,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	body := `{"username":"boss","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad credentials status = %d", rec.Code)
	}
}

func TestEndpointsRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d", rec.Code)
	}
}

func TestStaffCannotMutateInventory(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()
	if _, err := svc.CreateUser(ctx, domain.UserCreateRequest{
		Username: "cashier", Password: "secret1", Role: domain.RoleStaff,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	token := login(t, srv, "cashier", "secret1")

	body := `{"barcode":"123","name":"Shirt","cost_price":10,"sale_price":20}`
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff product create status = %d", rec.Code)
	}

	// Selling is a staff activity and must stay open to them.
	req = httptest.NewRequest(http.MethodGet, "/api/customers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("staff customer list status = %d", rec.Code)
	}
}

func TestAdminProductLifecycleOverHTTP(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()
	if _, err := svc.CreateUser(ctx, domain.UserCreateRequest{
		Username: "boss", Password: "secret1", Role: domain.RoleAdmin,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	token := login(t, srv, "boss", "secret1")

	body := `{"barcode":"4760000000017","name":"Oxford Shirt","cost_price":20,"sale_price":35}`
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode product: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/products/barcode/4760000000017", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("barcode lookup status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate barcode status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/products/99999", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing product status = %d", rec.Code)
	}
	_ = created
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthManager("secret-a", time.Hour)
	verifier := NewAuthManager("secret-b", time.Hour)

	token, _, err := issuer.IssueToken(domain.User{Username: "boss", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.VerifyToken(token); err == nil {
		t.Fatalf("token verified with the wrong secret")
	}
	actor, err := issuer.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if actor.Username != "boss" || actor.Role != domain.RoleAdmin {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	auth := NewAuthManager("secret", -time.Minute)
	token, _, err := auth.IssueToken(domain.User{Username: "boss", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := auth.VerifyToken(token); err == nil {
		t.Fatalf("expired token accepted")
	}
}
