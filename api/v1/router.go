package v1

import (
	"satvault/api/v1/auth"
	"satvault/api/v1/credentials"
	"satvault/api/v1/middleware"
	"satvault/internal/config"
	"satvault/internal/httpx"
	"satvault/internal/model"
	"satvault/internal/vault"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter sets up the API v1 routes. vaultOpts are passed through to
// both family services (converter, locker, pool wiring from main).
func SetupRouter(r *gin.Engine, db *gorm.DB, cfg *config.Config, vaultOpts ...vault.Option) {
	v1 := r.Group("/api/v1")
	{
		// Public routes (no authentication required)
		v1.GET("/ping", pingHandler)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", auth.LoginHandler(db, cfg))
		}

		// Protected routes (authentication required)
		protected := v1.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/me", meHandler)

			fielHandler := credentials.NewHandler(db, model.FamilyFIEL, cfg, vaultOpts...)
			fiel := protected.Group("/fiel")
			{
				fiel.POST("/upload", fielHandler.Upload)
				fiel.GET("/active", fielHandler.Active)
			}

			csdHandler := credentials.NewHandler(db, model.FamilyCSD, cfg, vaultOpts...)
			csd := protected.Group("/csd")
			{
				csd.POST("/upload", csdHandler.Upload)
				csd.GET("/active", csdHandler.Active)
				csd.GET("/check", csdHandler.Check)
			}
		}
	}
}

// pingHandler handles the ping request using unified response
func pingHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"pong": true,
	})
}

// meHandler returns the verified principal
func meHandler(c *gin.Context) {
	uid, _ := c.Get("uid")
	email, _ := c.Get("email")

	httpx.OK(c, gin.H{
		"uid":   uid,
		"email": email,
	})
}
