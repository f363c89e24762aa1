package middlewares

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows browser clients (and the editor plugin webviews) to talk to the
// API and read the attachment integrity headers.
func CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Authorization",
			"Content-Type",
			"X-Content-Hash",
			"X-Content-Length",
		},
		ExposeHeaders: []string{
			"Content-Type",
			"X-Content-Hash",
			"X-Content-Length",
			"X-Attachment-Hash",
		},
		MaxAge: 12 * time.Hour,
	}
	return cors.New(cfg)
}
