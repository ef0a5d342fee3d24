package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"workhub-manager/server/models"
	"workhub-manager/server/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeResolver struct {
	identities map[string]models.Identity
	err        error
}

func (f fakeResolver) ResolveIdentity(_ context.Context, token string) (models.Identity, error) {
	if f.err != nil {
		return models.Identity{}, f.err
	}
	identity, ok := f.identities[token]
	if !ok {
		return models.Identity{}, services.Unauthorized("Not authorized. Try login again.")
	}
	return identity, nil
}

func TestProtectRoute(t *testing.T) {
	admin := models.Identity{UserID: primitive.NewObjectID(), IsAdmin: true}
	resolver := fakeResolver{identities: map[string]models.Identity{"good": admin}}

	var seen models.Identity
	h := ProtectRoute(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/task", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "good"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK || seen != admin {
		t.Errorf("Expected cookie token to resolve, got %d / %+v", w.Code, seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/task", nil)
	req.Header.Set("Authorization", "Bearer good")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected bearer token to resolve, got %d", w.Code)
	}

	for _, token := range []string{"", "bad"} {
		req = httptest.NewRequest(http.MethodGet, "/api/task", nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
		}
		w = httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 for token %q, got %d", token, w.Code)
		}
	}
}

func TestProtectRouteStoreFailure(t *testing.T) {
	h := ProtectRoute(fakeResolver{err: errors.New("db down")})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/task", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "any"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}

func TestIsAdminRoute(t *testing.T) {
	h := IsAdminRoute(okHandler)

	cases := []struct {
		ctx  context.Context
		want int
	}{
		{context.Background(), http.StatusForbidden},
		{WithIdentity(context.Background(), models.Identity{UserID: primitive.NewObjectID()}), http.StatusForbidden},
		{WithIdentity(context.Background(), models.Identity{UserID: primitive.NewObjectID(), IsAdmin: true}), http.StatusOK},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/task/create", nil).WithContext(c.ctx)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != c.want {
			t.Errorf("Expected %d, got %d", c.want, w.Code)
		}
	}
}

func TestOptionalIdentity(t *testing.T) {
	member := models.Identity{UserID: primitive.NewObjectID()}
	resolver := fakeResolver{identities: map[string]models.Identity{"good": member}}

	var attached bool
	h := OptionalIdentity(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, attached = IdentityFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "bad"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK || attached {
		t.Errorf("Expected anonymous pass-through, got %d / %t", w.Code, attached)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/user/register", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "good"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !attached {
		t.Errorf("Expected identity attached")
	}
}

func TestEnableCORS(t *testing.T) {
	h := EnableCORS("http://localhost:3000")(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/task", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected preflight 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" ||
		w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Errorf("Unexpected CORS headers %v", w.Header())
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 after panic, got %d", w.Code)
	}
}
