package user

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthmate/healthmate/internal/platform/auth"
	"github.com/healthmate/healthmate/internal/platform/storage"
	"github.com/healthmate/healthmate/pkg/response"
)

type Handler struct {
	svc   *Service
	files storage.FileStore
}

func NewHandler(svc *Service, files storage.FileStore) *Handler {
	return &Handler{svc: svc, files: files}
}

func (h *Handler) RegisterRoutes(api *echo.Group, authMW, adminMW echo.MiddlewareFunc) {
	api.POST("/admin/signup", h.AdminSignup)
	api.POST("/admin/login", h.AdminLogin)
	api.POST("/user/signup", h.Signup)
	api.POST("/user/login", h.Login)
	api.POST("/user/forgot-password", h.ForgotPassword)
	api.POST("/user/verify-otp", h.VerifyOTP)
	api.POST("/user/reset-password", h.ResetPassword)

	api.GET("/user/profile", h.GetProfile, authMW)
	api.PUT("/user/profile", h.UpdateProfile, authMW)
	api.PATCH("/user/profile-image", h.UpdateProfileImage, authMW)

	api.GET("/admin/users", h.ListUsers, authMW, adminMW)
	api.POST("/admin/user", h.AddUser, authMW, adminMW)
	api.PUT("/admin/user/:id", h.UpdateUser, authMW, adminMW)
	api.PATCH("/admin/user/:id/profile-image", h.UpdateUserProfileImage, authMW, adminMW)
	api.DELETE("/admin/user/:id", h.DeleteUser, authMW, adminMW)
}

// -- Signup / login --

func (h *Handler) AdminSignup(c echo.Context) error {
	return h.signup(c, true, "Admin created successfully")
}

func (h *Handler) Signup(c echo.Context) error {
	return h.signup(c, false, "User created successfully")
}

// signupRequest binds from a JSON body or from form/multipart fields; the
// profile image only ever arrives as a multipart part.
type signupRequest struct {
	Email       string  `json:"email" form:"email"`
	FirstName   string  `json:"firstName" form:"firstName"`
	LastName    string  `json:"lastName" form:"lastName"`
	Password    string  `json:"password" form:"password"`
	PhoneNumber *string `json:"phoneNumber" form:"phoneNumber"`
	IsAdmin     *bool   `json:"isAdmin" form:"isAdmin"`
}

func (h *Handler) signup(c echo.Context, admin bool, message string) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if req.Email == "" || req.FirstName == "" || req.LastName == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide all required fields")
	}
	if !ValidEmail(req.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide a valid email address")
	}
	if len(req.Password) < MinPasswordLen {
		return echo.NewHTTPError(http.StatusBadRequest, "Password must be at least 6 characters long")
	}

	profileImg, err := h.saveProfileImage(c)
	if err != nil {
		return err
	}

	in := SignupInput{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		ProfileImg:  profileImg,
		IsAdmin:     admin,
	}
	u, token, err := h.svc.Signup(c.Request().Context(), in)
	if err != nil {
		return mapUserError(err)
	}
	return response.OK(c, http.StatusCreated, message, echo.Map{"user": u, "token": token})
}

func (h *Handler) AdminLogin(c echo.Context) error {
	return h.login(c, true, "Admin logged in successfully")
}

func (h *Handler) Login(c echo.Context) error {
	return h.login(c, false, "User logged in successfully")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c echo.Context, adminOnly bool, message string) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide email and password")
	}
	if !ValidEmail(req.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide a valid email address")
	}

	u, token, err := h.svc.Login(c.Request().Context(), req.Email, req.Password, adminOnly)
	if err != nil {
		return mapUserError(err)
	}
	return response.OK(c, http.StatusOK, message, echo.Map{"user": u, "token": token})
}

// -- Password reset --

func (h *Handler) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email is required")
	}
	if !ValidEmail(req.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide a valid email address")
	}

	if err := h.svc.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return response.Message(c, http.StatusOK, "If the email exists, an OTP has been sent")
}

func (h *Handler) VerifyOTP(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" || req.OTP == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and OTP are required")
	}

	if err := h.svc.VerifyOTP(c.Request().Context(), req.Email, req.OTP); err != nil {
		return mapUserError(err)
	}
	return response.Message(c, http.StatusOK, "OTP verified successfully")
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req struct {
		Email       string `json:"email"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" || req.NewPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and newPassword are required")
	}
	if len(req.NewPassword) < MinPasswordLen {
		return echo.NewHTTPError(http.StatusBadRequest, "Password must be at least 6 characters long")
	}

	if err := h.svc.ResetPassword(c.Request().Context(), req.Email, req.NewPassword); err != nil {
		return mapUserError(err)
	}
	return response.Message(c, http.StatusOK, "Password reset successfully")
}

// -- Own profile --

func (h *Handler) GetProfile(c echo.Context) error {
	id := auth.UserIDFromContext(c.Request().Context())
	u, err := h.svc.Profile(c.Request().Context(), id)
	if err != nil {
		return mapUserError(err)
	}
	return response.OK(c, http.StatusOK, "Profile retrieved successfully", u)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	id := auth.UserIDFromContext(c.Request().Context())

	var req struct {
		FirstName   *string `json:"firstName"`
		LastName    *string `json:"lastName"`
		Email       *string `json:"email"`
		PhoneNumber *string `json:"phoneNumber"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email != nil && *req.Email != "" && !ValidEmail(*req.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide a valid email address")
	}

	u, err := h.svc.UpdateProfile(c.Request().Context(), id, ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return echo.NewHTTPError(http.StatusBadRequest, "Email already exists")
		}
		return mapUserError(err)
	}
	return response.OK(c, http.StatusOK, "Profile updated successfully", u)
}

func (h *Handler) UpdateProfileImage(c echo.Context) error {
	return h.updateImage(c, auth.UserIDFromContext(c.Request().Context()))
}

// -- Admin management --

func (h *Handler) ListUsers(c echo.Context) error {
	id := auth.UserIDFromContext(c.Request().Context())
	users, err := h.svc.ListUsers(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OKCount(c, http.StatusOK, "Users retrieved successfully", users, len(users))
}

func (h *Handler) AddUser(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if req.Email == "" || req.FirstName == "" || req.LastName == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide all required fields")
	}

	profileImg, err := h.saveProfileImage(c)
	if err != nil {
		return err
	}

	in := SignupInput{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		ProfileImg:  profileImg,
		IsAdmin:     req.IsAdmin != nil && *req.IsAdmin,
	}
	u, err := h.svc.AddUser(c.Request().Context(), in)
	if err != nil {
		return mapUserError(err)
	}
	return response.OK(c, http.StatusCreated, "User added successfully", u)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user id")
	}

	var req struct {
		FirstName   *string `json:"firstName" form:"firstName"`
		LastName    *string `json:"lastName" form:"lastName"`
		PhoneNumber *string `json:"phoneNumber" form:"phoneNumber"`
		IsAdmin     *bool   `json:"isAdmin" form:"isAdmin"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	profileImg, err := h.saveProfileImage(c)
	if err != nil {
		return err
	}

	in := AdminUserUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		ProfileImg:  profileImg,
		IsAdmin:     req.IsAdmin,
	}

	u, err := h.svc.UpdateUser(c.Request().Context(), id, in)
	if err != nil {
		return mapUserError(err)
	}
	return response.OK(c, http.StatusOK, "User updated successfully", u)
}

func (h *Handler) UpdateUserProfileImage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user id")
	}
	return h.updateImage(c, id)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user id")
	}
	u, err := h.svc.DeleteUser(c.Request().Context(), id)
	if err != nil {
		return mapUserError(err)
	}
	return response.OK(c, http.StatusOK, "User deleted successfully", u)
}

// -- Helpers --

func (h *Handler) updateImage(c echo.Context, id uuid.UUID) error {
	img, err := h.saveProfileImage(c)
	if err != nil {
		return err
	}
	if img == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide a profile image")
	}

	u, err := h.svc.UpdateProfileImage(c.Request().Context(), id, *img)
	if err != nil {
		return mapUserError(err)
	}
	return response.OK(c, http.StatusOK, "Profile image updated successfully", u)
}

// saveProfileImage stores an optional multipart profileImg part and returns
// its public URL. A missing part is not an error.
func (h *Handler) saveProfileImage(c echo.Context) (*string, error) {
	fh, err := c.FormFile("profileImg")
	if err != nil {
		return nil, nil
	}
	url, err := h.saveUpload(fh)
	if err != nil {
		return nil, err
	}
	return &url, nil
}

func (h *Handler) saveUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	url, err := h.files.Save("profile", fh.Filename, fh.Header.Get("Content-Type"), src, storage.MaxProfileImageSize)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidContentType):
			return "", echo.NewHTTPError(http.StatusBadRequest, "Only image files (JPG, PNG) and PDF files are allowed!")
		case errors.Is(err, storage.ErrFileTooLarge):
			return "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "File too large. Maximum size is 5MB")
		}
		return "", err
	}
	return url, nil
}

// mapUserError converts domain errors into the HTTP statuses and messages
// the API promises.
func mapUserError(err error) error {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return echo.NewHTTPError(http.StatusBadRequest, "User with this email already exists")
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrAdminRequired):
		return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
	case errors.Is(err, ErrInvalidOTP):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid or expired OTP")
	case errors.Is(err, ErrOTPNotVerified):
		return echo.NewHTTPError(http.StatusBadRequest, "OTP verification required")
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	return err
}
