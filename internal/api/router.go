package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/timmy/askify/internal/api/handler"
	"github.com/timmy/askify/internal/api/middleware"
	"github.com/timmy/askify/internal/config"
	"github.com/timmy/askify/internal/logger"
	"github.com/timmy/askify/internal/service"
)

// Services bundles what the handlers depend on.
type Services struct {
	Pipeline handler.Explainer
	Tracker  handler.DownloadTracker
	Fetcher  *service.YTDLPFetcher
	Dub      handler.DubOrchestrator
	Notes    handler.NotesGenerator
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svcs *Services, cfg *config.Config, log *logger.Logger) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.Server.CORS))

	healthHandler := handler.NewHealthHandler(handler.DebugInfo{
		DownloadDir:  svcs.Fetcher.DownloadDir(),
		LLMKeySet:    cfg.LLM.APIKey != "",
		SpeechKeySet: cfg.Speech.APIKey != "",
		DubKeySet:    cfg.Dubbing.APIKey != "",
	}, svcs.Tracker)
	askHandler := handler.NewAskHandler(svcs.Pipeline)
	downloadHandler := handler.NewDownloadHandler(svcs.Tracker)
	dubHandler := handler.NewDubHandler(svcs.Fetcher, svcs.Dub, svcs.Notes)

	r.GET("/health", healthHandler.Health)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	{
		api.GET("/health", healthHandler.Health)
		api.GET("/debug", healthHandler.Debug)

		api.POST("/ask", askHandler.Ask)

		api.POST("/download", downloadHandler.Start)
		api.GET("/download_status", downloadHandler.Status)

		api.POST("/dub", dubHandler.Dub)
		api.GET("/dub_status", dubHandler.Status)
		api.GET("/dub_complete", dubHandler.Complete)
	}

	return r
}
