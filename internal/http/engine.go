// Package http builds the gin engine that serves the gift box API.
package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EngineOptions configures NewEngine.
type EngineOptions struct {
	CORS config.CORSConfig
	// MediaDir is served at MediaPrefix when the local media backend is active.
	MediaDir    string
	MediaPrefix string
}

// NewEngine returns a gin engine with recovery, CORS, request logging and /metrics installed.
func NewEngine(opts EngineOptions) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(buildCORSMiddleware(opts.CORS))
	engine.Use(RequestLogger())

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if dir := strings.TrimSpace(opts.MediaDir); dir != "" {
		prefix := "/" + strings.Trim(opts.MediaPrefix, "/")
		if prefix == "/" {
			prefix = "/media"
		}
		engine.Static(prefix, dir)
	}
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return engine
}

func buildCORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	origins := make([]string, 0, len(cfg.AllowOrigins))
	for _, origin := range cfg.AllowOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	return cors.New(corsCfg)
}
