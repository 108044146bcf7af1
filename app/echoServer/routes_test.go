package echoServer_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"creditdesk/app/echoServer"
	adminctrl "creditdesk/app/echoServer/controller/admin"
	jwtutil "creditdesk/util/jwt"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newServer() *echo.Echo {
	e := echo.New()
	// Handlers aren't reached in these tests; only the auth chain is.
	echoServer.Register(e, echoServer.C{Admin: &adminctrl.Controller{}, JWTSecret: testSecret})
	return e
}

func do(t *testing.T, e *echo.Echo, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/billing/credits/adjust", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAdminGroup_RejectsMissingToken(t *testing.T) {
	rec := do(t, newServer(), "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminGroup_RejectsBadSignature(t *testing.T) {
	tok, err := jwtutil.Issue("wrong-secret", "admin-1", "admin", 1)
	require.NoError(t, err)
	rec := do(t, newServer(), tok)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminGroup_RejectsNonAdminRole(t *testing.T) {
	tok, err := jwtutil.Issue(testSecret, "user-1", "support", 1)
	require.NoError(t, err)
	rec := do(t, newServer(), tok)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
