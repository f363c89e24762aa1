package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	slogGin "github.com/samber/slog-gin"

	"github.com/openvault/vaultsync/internal/server/handlers/admin"
	"github.com/openvault/vaultsync/internal/server/handlers/attachments"
	"github.com/openvault/vaultsync/internal/server/handlers/docs"
	"github.com/openvault/vaultsync/internal/server/middlewares"
	"github.com/openvault/vaultsync/internal/version"
)

func SetupRoutes(svc *Services) http.Handler {
	r := gin.New()
	// Document ids and attachment paths arrive URL-encoded ("notes%2Fdaily").
	// Without raw-path routing gin would split them into extra segments.
	r.UseRawPath = true
	r.UnescapePathValues = true

	docsH := docs.New(svc.Store)
	attachH := attachments.New(svc.Store, svc.Blob)
	adminH := admin.New(svc.Store)

	httpLogger := slog.Default().WithGroup("http")
	r.Use(slogGin.NewWithConfig(httpLogger, slogGin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
	}))
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.BestSpeed))
	r.Use(middlewares.CORS())

	r.GET("/", IndexHandler)
	r.GET("/healthz", HealthHandler)

	// Attachment content is public: note text embeds these URLs directly.
	r.GET("/api/attachments/:id/content", attachH.GetContent)

	r.POST("/api/auth/new", func(ctx *gin.Context) {
		key, err := svc.Keys.Mint()
		if err != nil {
			ctx.Error(err)
			ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to mint key"})
			return
		}
		ctx.PureJSON(http.StatusOK, gin.H{"ok": true, "key": key})
	})

	api := r.Group("/api")
	api.Use(middlewares.BearerAuth(svc.Keys))
	{
		api.GET("/status", docsH.Status)
		api.GET("/changes", docsH.Changes)
		api.POST("/docs/bulk_docs", docsH.Bulk)
		// Legacy alias kept for older clients.
		api.POST("/_bulk_docs", docsH.Bulk)
		api.GET("/docs/:id", docsH.Get)
		api.PUT("/docs/:id", docsH.Put)
		api.DELETE("/docs/:id", docsH.Delete)

		api.GET("/attachments/changes", attachH.Changes)
		api.GET("/attachments/:id", attachH.Get)
		api.PUT("/attachments/*path", attachH.Put)
		api.DELETE("/attachments/:id", attachH.Delete)

		api.GET("/admin/stats", adminH.Stats)
		api.POST("/admin/cleanup", adminH.Cleanup)
	}

	r.NoRoute(func(ctx *gin.Context) {
		ctx.PureJSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	r.NoMethod(func(ctx *gin.Context) {
		ctx.PureJSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	return r.Handler()
}

func IndexHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{
		"name":    version.AppName,
		"version": version.Short(),
		"status":  "ok",
	})
}

func HealthHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{"status": "ok"})
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
