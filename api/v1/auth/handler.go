package auth

import (
	"errors"
	"time"

	"satvault/internal/auth"
	"satvault/internal/config"
	"satvault/internal/httpx"
	"satvault/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents login response data
type LoginResponse struct {
	Token    string   `json:"token"`
	ExpireAt string   `json:"expireAt"`
	User     UserInfo `json:"user"`
}

// UserInfo represents user information in response
type UserInfo struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
}

// LoginHandler handles user login
func LoginHandler(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
			return
		}

		var user model.User
		if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// same error for unknown user and wrong password
				httpx.FailErr(c, httpx.ErrInvalidToken("invalid credentials"))
				return
			}
			httpx.FailErr(c, httpx.ErrDatabaseError("database error", err))
			return
		}

		if user.Status == model.UserStatusInactive {
			httpx.FailErr(c, httpx.ErrForbidden("user is inactive"))
			return
		}

		if err := auth.ComparePassword(user.PasswordHash, req.Password); err != nil {
			httpx.FailErr(c, httpx.ErrInvalidToken("invalid credentials"))
			return
		}

		expireAt := time.Now().Add(time.Duration(cfg.JWT.ExpireMinutes) * time.Minute)
		token, err := auth.GenerateToken(user.ID, user.Email, expireAt, cfg.JWT.Issuer)
		if err != nil {
			httpx.FailErr(c, httpx.ErrInternalError("failed to generate token", err))
			return
		}

		httpx.OK(c, LoginResponse{
			Token:    token,
			ExpireAt: expireAt.Format(time.RFC3339),
			User: UserInfo{
				ID:    user.ID,
				Email: user.Email,
			},
		})
	}
}
