package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openagora/agora/internal/apiserver/database"
	"github.com/openagora/agora/internal/auth/jwt"
	"github.com/openagora/agora/internal/common/errorx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Auth serves account registration and login.
type Auth struct {
	logger *zap.Logger
	store  database.Store
	jwt    *jwt.Service
}

// NewAuth creates the auth handler.
func NewAuth(logger *zap.Logger, store database.Store, jwtService *jwt.Service) *Auth {
	return &Auth{
		logger: logger.Named("handler.auth"),
		store:  store,
		jwt:    jwtService,
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8"`
	Avatar   string `json:"avatar"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HandleRegister creates a new account.
func (h *Auth) HandleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.store.GetUserByUsername(c.Request.Context(), req.Username); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		return
	} else if !errors.Is(err, errorx.NotFound("")) {
		h.logger.Error("failed to check username", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	user := &database.User{
		Username: req.Username,
		Password: string(hash),
		Avatar:   req.Avatar,
		Role:     database.RoleNormal,
	}
	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		h.logger.Error("failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// HandleLogin verifies credentials and issues a token.
func (h *Auth) HandleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Username, user.Avatar, string(user.Role))
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
