// Package auth adapts the credential services to the chat subsystem.
package auth

import (
	"github.com/openagora/agora/internal/auth/jwt"
	"github.com/openagora/agora/internal/chat"
	"github.com/openagora/agora/internal/chat/session"
)

// JWTValidator exposes the JWT service as the binder's token
// validator.
type JWTValidator struct {
	svc *jwt.Service
}

var _ session.TokenValidator = (*JWTValidator)(nil)

// NewJWTValidator wraps a JWT service.
func NewJWTValidator(svc *jwt.Service) *JWTValidator {
	return &JWTValidator{svc: svc}
}

// Validate implements session.TokenValidator.
func (v *JWTValidator) Validate(token string) (*chat.Principal, error) {
	claims, err := v.svc.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &chat.Principal{
		UserID:   claims.UserID,
		Username: claims.Username,
		Avatar:   claims.Avatar,
		Role:     claims.Role,
	}, nil
}
