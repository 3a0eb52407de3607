package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/shopcore/backend/internal/domain"
	"github.com/shopcore/backend/internal/session"
)

type fakeSessionReader struct {
	sessions map[string]*session.Session
}

func (f *fakeSessionReader) Get(_ context.Context, id string) (*session.Session, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func sessionReaderWith(sess *session.Session) *fakeSessionReader {
	return &fakeSessionReader{sessions: map[string]*session.Session{sess.ID: sess}}
}

func staffSession() *session.Session {
	return &session.Session{
		ID:        "sess-staff",
		Principal: domain.Principal{ID: "u-1", Name: "Staff", Email: "staff@example.com", Role: domain.RoleStaff},
		CSRFToken: "csrf-staff",
	}
}

func TestAuthenticate_NoCookie(t *testing.T) {
	next, called := okHandler()
	mw := Authenticate(&fakeSessionReader{}, testLogger())

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *called)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestAuthenticate_UnknownSession(t *testing.T) {
	next, called := okHandler()
	mw := Authenticate(&fakeSessionReader{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "nope"})
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *called)
}

func TestAuthenticate_AttachesSession(t *testing.T) {
	sess := staffSession()
	var gotPrincipal domain.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		assert.True(t, ok)
		gotPrincipal = p
	})
	mw := Authenticate(sessionReaderWith(sess), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sess.ID})
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", gotPrincipal.ID)
	assert.Equal(t, domain.RoleStaff, gotPrincipal.Role)
}

func withSession(req *http.Request, sess *session.Session) *http.Request {
	ctx := context.WithValue(req.Context(), sessionContextKey, sess)
	return req.WithContext(ctx)
}

func TestRequireRole(t *testing.T) {
	next, called := okHandler()
	mw := RequireRole(domain.RoleAdmin)

	req := withSession(httptest.NewRequest(http.MethodGet, "/", nil), staffSession())
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, *called)

	mw = RequireRole(domain.RoleAdmin, domain.RoleStaff)
	rec = httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *called)
}

func TestRequireRole_NoSession(t *testing.T) {
	next, called := okHandler()
	mw := RequireRole(domain.RoleCustomer)

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *called)
}

func TestRequireMinimumRole(t *testing.T) {
	next, _ := okHandler()
	req := withSession(httptest.NewRequest(http.MethodGet, "/", nil), staffSession())

	rec := httptest.NewRecorder()
	RequireMinimumRole(domain.RoleCustomer)(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	RequireMinimumRole(domain.RoleAdmin)(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequirePermissions_AllRequired(t *testing.T) {
	next, _ := okHandler()
	req := withSession(httptest.NewRequest(http.MethodGet, "/", nil), staffSession())

	// Staff holds product:edit but not user:delete; AND semantics reject.
	rec := httptest.NewRecorder()
	RequirePermissions(domain.PermProductEdit, domain.PermUserDelete)(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	RequirePermissions(domain.PermProductEdit, domain.PermReviewModerate)(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestRequireOwnershipOrAdmin(t *testing.T) {
	next, _ := okHandler()
	mw := RequireOwnershipOrAdmin("id")

	// Staff accessing their own record passes.
	req := withSession(httptest.NewRequest(http.MethodGet, "/users/u-1", nil), staffSession())
	req = withURLParam(req, "id", "u-1")
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Staff accessing someone else is rejected.
	req = withSession(httptest.NewRequest(http.MethodGet, "/users/u-2", nil), staffSession())
	req = withURLParam(req, "id", "u-2")
	rec = httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admins may access anyone.
	admin := &session.Session{
		ID:        "sess-admin",
		Principal: domain.Principal{ID: "u-9", Role: domain.RoleAdmin},
		CSRFToken: "csrf-admin",
	}
	req = withSession(httptest.NewRequest(http.MethodGet, "/users/u-2", nil), admin)
	req = withURLParam(req, "id", "u-2")
	rec = httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRF(t *testing.T) {
	next, _ := okHandler()
	sess := staffSession()

	// Safe methods pass without a token.
	rec := httptest.NewRecorder()
	CSRF(next).ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/", nil), sess))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Mutating request without the header is rejected.
	rec = httptest.NewRecorder()
	CSRF(next).ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodPost, "/", nil), sess))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Wrong token is rejected.
	req := withSession(httptest.NewRequest(http.MethodPost, "/", nil), sess)
	req.Header.Set(csrfHeaderName, "wrong")
	rec = httptest.NewRecorder()
	CSRF(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Matching token passes.
	req = withSession(httptest.NewRequest(http.MethodPost, "/", nil), sess)
	req.Header.Set(csrfHeaderName, sess.CSRFToken)
	rec = httptest.NewRecorder()
	CSRF(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
