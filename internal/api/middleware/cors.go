package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the SPA at clientURL to call the API with credentials (the refresh cookie).
// An empty clientURL allows any origin without credentials.
func CORS(clientURL string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept", "Accept-Encoding", "Authorization",
			"Cache-Control", "X-Requested-With", "X-BFP", "X-SPA", "X-C-V", "X-C-T",
		},
		ExposeHeaders: []string{"X-C-T"},
		MaxAge:        12 * time.Hour,
	}
	if clientURL == "" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{clientURL}
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
