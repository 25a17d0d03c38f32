package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"userinfo-api/internal/domain"
	"userinfo-api/internal/service"
	"userinfo-api/internal/session"
	"userinfo-api/internal/storage"
)

// MaxProfileImageBytes caps profile image uploads.
const MaxProfileImageBytes = 5 << 20

// SessionManager is the part of session.Manager the handlers use.
type SessionManager interface {
	Create(ctx context.Context, userID int64) (*session.Issued, error)
	Resolve(ctx context.Context, token string) (*domain.Session, error)
	Destroy(ctx context.Context, sessionID string) error
}

type Options struct {
	CookieName     string
	SecureCookie   bool
	AllowedOrigins []string
	Logger         logrus.FieldLogger
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	profiles service.ProfileService
	sessions SessionManager
	images   storage.Service
	opts     Options
}

// NewHandler builds the API handler. images may be nil, in which case the
// profile image upload route is not registered.
func NewHandler(users service.UserService, profiles service.ProfileService, sessions SessionManager, images storage.Service, opts Options) *Handler {
	if opts.CookieName == "" {
		opts.CookieName = "sid"
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Handler{
		users:    users,
		profiles: profiles,
		sessions: sessions,
		images:   images,
		opts:     opts,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.opts.Logger))
	router.Use(corsMiddleware(h.opts.AllowedOrigins))
	router.Use(errorHandler(h.opts.Logger))
	router.Use(recovery(h.opts.Logger))

	api := router.Group("/api")
	{
		api.POST("/sign-up", h.signUp)
		api.POST("/sign-in", h.signIn)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}

	authed := api.Group("", h.authGate())
	{
		authed.POST("/sign-out", h.signOut)
		authed.GET("/users", h.getUser)
		authed.PATCH("/users", h.updateUser)
		authed.PATCH("/users/", h.updateUser)
		authed.GET("/users/histories", h.listHistories)
		if h.images != nil {
			authed.PUT("/users/profile-image", h.uploadProfileImage)
		}
	}
}

type signUpRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	Name         string `json:"name"`
	Age          int    `json:"age"`
	Gender       string `json:"gender" binding:"required"`
	ProfileImage string `json:"profileImage"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// updateUserRequest is the closed set of profile fields a client may change.
type updateUserRequest struct {
	Name         *string `json:"name"`
	Age          *int    `json:"age"`
	Gender       *string `json:"gender"`
	ProfileImage *string `json:"profileImage"`
}

func (r updateUserRequest) toUpdate() domain.ProfileUpdate {
	u := domain.ProfileUpdate{
		Name:         r.Name,
		Age:          r.Age,
		ProfileImage: r.ProfileImage,
	}
	if r.Gender != nil {
		g := domain.Gender(*r.Gender)
		u.Gender = &g
	}
	return u
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindingError(err))
		return
	}

	_, err := h.users.SignUp(c.Request.Context(), service.SignUpInput{
		Email:        req.Email,
		Password:     req.Password,
		Name:         req.Name,
		Age:          req.Age,
		Gender:       req.Gender,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "sign-up completed"})
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindingError(err))
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	issued, err := h.sessions.Create(c.Request.Context(), user.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.setSessionCookie(c, issued.Token, issued.Session.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"message": "signed in"})
}

func (h *Handler) signOut(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		_ = c.Error(unauthorized("authentication required", nil))
		return
	}

	if err := h.sessions.Destroy(c.Request.Context(), id.SessionID); err != nil {
		_ = c.Error(err)
		return
	}

	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		_ = c.Error(unauthorized("authentication required", nil))
		return
	}

	user, err := h.profiles.GetProfile(c.Request.Context(), id.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": userToResponse(*user)})
}

func (h *Handler) updateUser(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		_ = c.Error(unauthorized("authentication required", nil))
		return
	}

	req, err := decodeUpdateRequest(c.Request.Body)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if _, err := h.profiles.UpdateProfile(c.Request.Context(), id.UserID, req.toUpdate()); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user info updated"})
}

// decodeUpdateRequest reads a PATCH body. Unknown keys and wrongly typed
// values are rejected; an empty body is an empty update.
func decodeUpdateRequest(body io.Reader) (updateUserRequest, error) {
	var req updateUserRequest
	if body == nil {
		return req, nil
	}

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return updateUserRequest{}, nil
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return req, badRequest(typeErr.Field+" has the wrong type", err)
		}
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return req, badRequest("unknown field "+field, err)
		}
		return req, badRequest("invalid request body", err)
	}
	if dec.More() {
		return req, badRequest("invalid request body", errors.New("trailing data after JSON object"))
	}
	return req, nil
}

func (h *Handler) listHistories(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		_ = c.Error(unauthorized("authentication required", nil))
		return
	}

	entries, err := h.profiles.ListHistory(c.Request.Context(), id.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": historyToResponse(entries)})
}

func (h *Handler) uploadProfileImage(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		_ = c.Error(unauthorized("authentication required", nil))
		return
	}

	// leave room for the multipart envelope around the image itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxProfileImageBytes+1<<20)
	fh, err := c.FormFile("image")
	if err != nil {
		_ = c.Error(badRequest("image file is required", err))
		return
	}
	if fh.Size > MaxProfileImageBytes {
		_ = c.Error(badRequest(fmt.Sprintf("image must be at most %d bytes", MaxProfileImageBytes), nil))
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		_ = c.Error(badRequest("file must be an image", nil))
		return
	}

	f, err := fh.Open()
	if err != nil {
		_ = c.Error(fmt.Errorf("open uploaded image: %w", err))
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	obj, err := h.images.UploadProfileImage(ctx, storage.ImageUpload{
		UserID:      id.UserID,
		Filename:    fh.Filename,
		ContentType: contentType,
		Body:        f,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	location := obj.Location
	if _, err := h.profiles.UpdateProfile(ctx, id.UserID, domain.ProfileUpdate{ProfileImage: &location}); err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if delErr := h.images.DeleteObject(cleanupCtx, obj.Key); delErr != nil {
			h.opts.Logger.WithError(delErr).WithField("key", obj.Key).Warn("remove orphaned profile image")
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"profileImage": location}})
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
