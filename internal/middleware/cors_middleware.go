package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the web front end at clientURL on every route, except openPaths,
// which accept any origin with Content-Type only (the plain HTTP fallback endpoints).
// With an empty clientURL only openPaths get CORS headers.
func CORSMiddleware(clientURL string, openPaths ...string) gin.HandlerFunc {
	open := cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type"},
	})

	var client gin.HandlerFunc
	if clientURL != "" {
		client = cors.New(cors.Config{
			AllowOrigins:     []string{clientURL},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		})
	}

	openSet := make(map[string]struct{}, len(openPaths))
	for _, p := range openPaths {
		openSet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := openSet[c.Request.URL.Path]; ok {
			open(c)
			return
		}
		if client != nil {
			client(c)
			return
		}
		c.Next()
	}
}
