package user

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/healthmate/healthmate/internal/platform/auth"
)

// -- Mock file store --

type mockFileStore struct {
	saved   []string
	removed []string
	failErr error
}

func (m *mockFileStore) Save(category, origName, contentType string, content io.Reader, maxSize int64) (string, error) {
	if m.failErr != nil {
		return "", m.failErr
	}
	name := fmt.Sprintf("/uploads/%s/%s", category, origName)
	m.saved = append(m.saved, name)
	return name, nil
}

func (m *mockFileStore) Resolve(urlPath string) (string, error) {
	return "", fmt.Errorf("not found")
}

func (m *mockFileStore) Remove(urlPath string) error {
	m.removed = append(m.removed, urlPath)
	return nil
}

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _, _ := newTestService()
	return NewHandler(svc, &mockFileStore{}), echo.New()
}

func formRequest(e *echo.Echo, method, target string, form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func jsonRequest(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func authenticate(c echo.Context, ident auth.Identity) {
	c.SetRequest(c.Request().WithContext(auth.WithIdentity(c.Request().Context(), ident)))
}

func httpError(t *testing.T, err error) *echo.HTTPError {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he
}

func TestHandler_Signup(t *testing.T) {
	h, e := newTestHandler()

	form := url.Values{}
	form.Set("email", "alice@example.com")
	form.Set("firstName", "Alice")
	form.Set("lastName", "Smith")
	form.Set("password", "secret1")
	c, rec := formRequest(e, http.MethodPost, "/api/user/signup", form)

	if err := h.Signup(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    struct {
			User  User   `json:"user"`
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body.Success || body.Message != "User created successfully" {
		t.Errorf("unexpected envelope: %+v", body)
	}
	if body.Data.Token == "" {
		t.Error("expected a token")
	}
	if body.Data.User.Email != "alice@example.com" {
		t.Errorf("user email = %q", body.Data.User.Email)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response must not leak password material")
	}
}

func TestHandler_Signup_Validation(t *testing.T) {
	h, e := newTestHandler()

	cases := []struct {
		name    string
		mutate  func(url.Values)
		message string
	}{
		{"missing fields", func(f url.Values) { f.Del("email") }, "Please provide all required fields"},
		{"bad email", func(f url.Values) { f.Set("email", "not-an-email") }, "Please provide a valid email address"},
		{"short password", func(f url.Values) { f.Set("password", "12345") }, "Password must be at least 6 characters long"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := url.Values{}
			form.Set("email", "alice@example.com")
			form.Set("firstName", "Alice")
			form.Set("lastName", "Smith")
			form.Set("password", "secret1")
			tc.mutate(form)

			c, _ := formRequest(e, http.MethodPost, "/api/user/signup", form)
			he := httpError(t, h.Signup(c))
			if he.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", he.Code)
			}
			if he.Message != tc.message {
				t.Errorf("message = %v, want %q", he.Message, tc.message)
			}
		})
	}
}

func TestHandler_AdminSignupGrantsAdmin(t *testing.T) {
	h, e := newTestHandler()

	form := url.Values{}
	form.Set("email", "root@example.com")
	form.Set("firstName", "Root")
	form.Set("lastName", "Admin")
	form.Set("password", "secret1")
	c, rec := formRequest(e, http.MethodPost, "/api/admin/signup", form)

	if err := h.AdminSignup(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"isAdmin":true`) {
		t.Errorf("expected admin flag in response: %s", rec.Body.String())
	}
}

func TestHandler_Signup_JSONBody(t *testing.T) {
	h, e := newTestHandler()

	c, rec := jsonRequest(e, http.MethodPost, "/api/user/signup",
		`{"email":"a@b.com","firstName":"A","lastName":"B","password":"secret1","phoneNumber":"555-0101"}`)
	if err := h.Signup(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var body struct {
		Data struct {
			User  User   `json:"user"`
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Data.Token == "" {
		t.Error("expected a token")
	}
	if body.Data.User.Email != "a@b.com" {
		t.Errorf("user email = %q", body.Data.User.Email)
	}
	if body.Data.User.PhoneNumber == nil || *body.Data.User.PhoneNumber != "555-0101" {
		t.Errorf("phone number = %v", body.Data.User.PhoneNumber)
	}
}

func TestHandler_AddUser_JSONBody(t *testing.T) {
	h, e := newTestHandler()

	c, rec := jsonRequest(e, http.MethodPost, "/api/admin/users",
		`{"email":"new@example.com","firstName":"New","lastName":"User","password":"secret1","isAdmin":true}`)
	if err := h.AddUser(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"isAdmin":true`) {
		t.Errorf("expected admin flag in response: %s", rec.Body.String())
	}
}

func TestHandler_UpdateUser_JSONBody(t *testing.T) {
	h, e := newTestHandler()
	member := seedUser(t, h.svc, "member@example.com", "secret1", false)

	c, rec := jsonRequest(e, http.MethodPut, "/", `{"firstName":"Renamed","isAdmin":true}`)
	c.SetParamNames("id")
	c.SetParamValues(member.ID.String())

	if err := h.UpdateUser(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Data User `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Data.FirstName != "Renamed" {
		t.Errorf("firstName = %q", body.Data.FirstName)
	}
	if !body.Data.IsAdmin {
		t.Error("expected isAdmin to be set")
	}
	if body.Data.LastName == "" {
		t.Error("untouched fields must survive a partial update")
	}
}

func TestHandler_Login(t *testing.T) {
	h, e := newTestHandler()
	seedUser(t, h.svc, "bob@example.com", "secret1", false)

	c, rec := jsonRequest(e, http.MethodPost, "/api/user/login", `{"email":"bob@example.com","password":"secret1"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Login_WrongPassword(t *testing.T) {
	h, e := newTestHandler()
	seedUser(t, h.svc, "bob@example.com", "secret1", false)

	c, _ := jsonRequest(e, http.MethodPost, "/api/user/login", `{"email":"bob@example.com","password":"nope"}`)
	he := httpError(t, h.Login(c))
	if he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", he.Code)
	}
	if he.Message != "Invalid credentials" {
		t.Errorf("message = %v", he.Message)
	}
}

func TestHandler_AdminLogin_NonAdmin(t *testing.T) {
	h, e := newTestHandler()
	seedUser(t, h.svc, "plain@example.com", "secret1", false)

	c, _ := jsonRequest(e, http.MethodPost, "/api/admin/login", `{"email":"plain@example.com","password":"secret1"}`)
	he := httpError(t, h.AdminLogin(c))
	if he.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", he.Code)
	}
	if he.Message != "Admin access required" {
		t.Errorf("message = %v", he.Message)
	}
}

func TestHandler_ForgotPassword_UniformResponse(t *testing.T) {
	h, e := newTestHandler()
	seedUser(t, h.svc, "kate@example.com", "secret1", false)

	for _, email := range []string{"kate@example.com", "ghost@example.com"} {
		c, rec := jsonRequest(e, http.MethodPost, "/api/user/forgot-password", `{"email":"`+email+`"}`)
		if err := h.ForgotPassword(c); err != nil {
			t.Fatalf("unexpected error for %s: %v", email, err)
		}
		if !strings.Contains(rec.Body.String(), "If the email exists, an OTP has been sent") {
			t.Errorf("response for %s must be uniform: %s", email, rec.Body.String())
		}
	}
}

func TestHandler_VerifyOTP_Invalid(t *testing.T) {
	h, e := newTestHandler()

	c, _ := jsonRequest(e, http.MethodPost, "/api/user/verify-otp", `{"email":"kate@example.com","otp":"1234"}`)
	he := httpError(t, h.VerifyOTP(c))
	if he.Code != http.StatusBadRequest || he.Message != "Invalid or expired OTP" {
		t.Errorf("unexpected error: %d %v", he.Code, he.Message)
	}
}

func TestHandler_ResetPassword_WithoutVerification(t *testing.T) {
	h, e := newTestHandler()
	seedUser(t, h.svc, "kate@example.com", "secret1", false)

	c, _ := jsonRequest(e, http.MethodPost, "/api/user/reset-password", `{"email":"kate@example.com","newPassword":"secret2"}`)
	he := httpError(t, h.ResetPassword(c))
	if he.Code != http.StatusBadRequest || he.Message != "OTP verification required" {
		t.Errorf("unexpected error: %d %v", he.Code, he.Message)
	}
}

func TestHandler_GetProfile(t *testing.T) {
	h, e := newTestHandler()
	u := seedUser(t, h.svc, "kate@example.com", "secret1", false)

	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	authenticate(c, auth.Identity{ID: u.ID, Email: u.Email})

	if err := h.GetProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "kate@example.com") {
		t.Errorf("profile missing email: %s", rec.Body.String())
	}
}

func TestHandler_UpdateProfile_DuplicateEmail(t *testing.T) {
	h, e := newTestHandler()
	u := seedUser(t, h.svc, "kate@example.com", "secret1", false)
	seedUser(t, h.svc, "taken@example.com", "secret1", false)

	c, _ := jsonRequest(e, http.MethodPut, "/api/user/profile", `{"email":"taken@example.com"}`)
	authenticate(c, auth.Identity{ID: u.ID, Email: u.Email})

	he := httpError(t, h.UpdateProfile(c))
	if he.Code != http.StatusBadRequest || he.Message != "Email already exists" {
		t.Errorf("unexpected error: %d %v", he.Code, he.Message)
	}
}

func TestHandler_UpdateProfileImage_MissingFile(t *testing.T) {
	h, e := newTestHandler()
	u := seedUser(t, h.svc, "kate@example.com", "secret1", false)

	c, _ := formRequest(e, http.MethodPatch, "/api/user/profile-image", url.Values{})
	authenticate(c, auth.Identity{ID: u.ID, Email: u.Email})

	he := httpError(t, h.UpdateProfileImage(c))
	if he.Code != http.StatusBadRequest || he.Message != "Please provide a profile image" {
		t.Errorf("unexpected error: %d %v", he.Code, he.Message)
	}
}

func TestHandler_ListUsers_ExcludesCaller(t *testing.T) {
	h, e := newTestHandler()
	admin := seedUser(t, h.svc, "root@example.com", "secret1", true)
	seedUser(t, h.svc, "member@example.com", "secret1", false)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	authenticate(c, auth.Identity{ID: admin.ID, Email: admin.Email, IsAdmin: true})

	if err := h.ListUsers(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Count *int   `json:"count"`
		Data  []User `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Count == nil || *body.Count != 1 {
		t.Errorf("count = %v", body.Count)
	}
	if len(body.Data) != 1 || body.Data[0].Email != "member@example.com" {
		t.Errorf("unexpected users: %+v", body.Data)
	}
}

func TestHandler_DeleteUser(t *testing.T) {
	h, e := newTestHandler()
	member := seedUser(t, h.svc, "member@example.com", "secret1", false)

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(member.ID.String())

	if err := h.DeleteUser(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := h.svc.Profile(context.Background(), member.ID); err == nil {
		t.Error("user should be deleted")
	}
}

func TestHandler_DeleteUser_NotFound(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("6e4cbbde-4f7a-4e3b-9101-1f0a0dbb1a3a")

	he := httpError(t, h.DeleteUser(c))
	if he.Code != http.StatusNotFound || he.Message != "User not found" {
		t.Errorf("unexpected error: %d %v", he.Code, he.Message)
	}
}
