package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tablero/internal/model"
	"tablero/internal/service"
	"tablero/internal/session"
)

func (h *Handler) RegisterPage(c *gin.Context) {
	h.render(c, http.StatusOK, "registro.html", gin.H{})
}

func (h *Handler) RegisterHandler(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		h.redirect(c, model.FlashDanger, "Name, a valid email and password are required", "/registro")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.db.FindUserByEmail(ctx, req.Email); err == nil {
		h.redirect(c, model.FlashDanger, "That email is already registered", "/registro")
		return
	} else if !errors.Is(err, service.ErrUserNotFound) {
		h.logger.Error("Failed to look up user", zap.Error(err), zap.String("request_id", requestID(c)))
		h.redirect(c, model.FlashDanger, "Error registering: "+errorMessage(err), "/registro")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.opts.BcryptCost)
	if err != nil {
		h.redirect(c, model.FlashDanger, "Error registering: "+err.Error(), "/registro")
		return
	}

	user := model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         model.RoleForNewAccount(req.Name),
	}
	if _, err := h.db.CreateUser(ctx, user); err != nil {
		h.logger.Error("Failed to create user", zap.Error(err), zap.String("request_id", requestID(c)))
		h.redirect(c, model.FlashDanger, "Error registering: "+errorMessage(err), "/registro")
		return
	}

	h.logger.Info("User registered", zap.String("role", user.Role.String()), zap.String("request_id", requestID(c)))
	h.redirect(c, model.FlashSuccess, "Registration successful", "/login")
}

func (h *Handler) LoginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{})
}

func (h *Handler) LoginHandler(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.redirect(c, model.FlashDanger, "Invalid credentials", "/login")
		return
	}

	user, err := h.db.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, service.ErrUserNotFound) {
		h.logger.Error("Failed to look up user", zap.Error(err), zap.String("request_id", requestID(c)))
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.redirect(c, model.FlashDanger, "Invalid credentials", "/login")
		return
	}

	// A fresh id on login keeps a pre-login cookie from being reused.
	old := currentSession(c)
	sess := session.New()
	sess.UserID = user.ID
	sess.UserName = user.Name
	sess.Role = user.Role
	sess.Flashes = old.PopFlashes()
	h.replaceSession(c, old, sess)

	h.logger.Info("User logged in", zap.Int64("user_id", user.ID), zap.String("role", user.Role.String()), zap.String("request_id", requestID(c)))
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) LogoutHandler(c *gin.Context) {
	sess := session.New()
	sess.AddFlash(model.FlashInfo, "Session closed")
	h.replaceSession(c, currentSession(c), sess)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) replaceSession(c *gin.Context, old, sess *model.Session) {
	if err := h.sessions.Delete(c.Request.Context(), old.ID); err != nil {
		h.logger.Error("Failed to delete session", zap.Error(err), zap.String("request_id", requestID(c)))
	}
	h.saveSession(c, sess)
	h.setSessionCookie(c, sess.ID)
	c.Set(sessionKey, sess)
}
