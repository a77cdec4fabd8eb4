package visitor

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newTestRouter(id *Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(id.Middleware(), id.CSRFMiddleware())
	handler := func(c *gin.Context) {
		visitorID, _ := IDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"visitor": visitorID, "csrf": CSRFTokenFromContext(c)})
	}
	r.GET("/", handler)
	r.POST("/", handler)
	return r
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func TestMiddlewareIssuesCookies(t *testing.T) {
	id := NewIdentity(24*time.Hour, false)
	router := newTestRouter(id)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	vc := findCookie(rec, DefaultCookieName)
	if vc == nil {
		t.Fatalf("visitor cookie not set")
	}
	if _, err := uuid.Parse(vc.Value); err != nil {
		t.Fatalf("visitor cookie is not a uuid: %q", vc.Value)
	}
	if !vc.HttpOnly {
		t.Fatalf("visitor cookie should be http only")
	}
	cc := findCookie(rec, DefaultCSRFCookieName)
	if cc == nil || len(cc.Value) != 64 {
		t.Fatalf("csrf cookie not set: %#v", cc)
	}
	if cc.HttpOnly {
		t.Fatalf("csrf cookie must be readable by scripts")
	}
	if !strings.Contains(rec.Body.String(), vc.Value) {
		t.Fatalf("handler did not see the new visitor id: %s", rec.Body.String())
	}
}

func TestMiddlewareKeepsExistingIdentity(t *testing.T) {
	id := NewIdentity(time.Hour, false)
	router := newTestRouter(id)
	visitorID := uuid.NewString()
	token := strings.Repeat("ab", 32)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: visitorID})
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("no cookies should be reissued, got %v", rec.Result().Cookies())
	}
	if !strings.Contains(rec.Body.String(), visitorID) {
		t.Fatalf("visitor id not propagated: %s", rec.Body.String())
	}
}

func TestMiddlewareReplacesMalformedVisitor(t *testing.T) {
	router := newTestRouter(NewIdentity(time.Hour, false))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "../../etc"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	vc := findCookie(rec, DefaultCookieName)
	if vc == nil || vc.Value == "../../etc" {
		t.Fatalf("malformed visitor cookie was kept: %#v", vc)
	}
}

func TestCSRFRejectsMissingToken(t *testing.T) {
	router := newTestRouter(NewIdentity(time.Hour, false))
	token := strings.Repeat("cd", 32)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without header, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(DefaultCSRFHeaderName, strings.Repeat("ef", 32))
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: token})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on mismatch, got %d", rec.Code)
	}
}

func TestCSRFAcceptsHeaderOrFormField(t *testing.T) {
	router := newTestRouter(NewIdentity(time.Hour, false))
	token := strings.Repeat("cd", 32)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(DefaultCSRFHeaderName, token)
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("header token: expected 200, got %d", rec.Code)
	}

	form := url.Values{CSRFFormField: {token}}
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: token})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("form token: expected 200, got %d", rec.Code)
	}
}
