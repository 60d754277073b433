package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the conference site origins to call the API with cookies.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{
			"GET", "POST", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			"X-Requested-With", "X-Request-ID",
			"Cache-Control",
		},
		AllowCredentials: true,
		AllowWebSockets:  true,
		ExposeHeaders: []string{
			"Content-Type", "Cache-Control", "X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}

	return cors.New(config)
}
