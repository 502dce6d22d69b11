package server

import (
	"fmt"
	"net/http"
	"time"

	httpLogger "github.com/chi-middleware/logrus-logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/internal"
	"github.com/chatrag/chatrag/pkg/server/apihandlers"
)

var log = internal.GetLogger()

const (
	ReadHeaderTimeout = 5 * time.Second
	serviceName       = "chatrag"
)

// Create creates a new HTTP server serving the RAG pipeline.
func Create(cfg *config.Config, pipeline apihandlers.Pipeline) *http.Server {
	router := setupRouter(cfg, pipeline)
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}
}

func setupRouter(cfg *config.Config, pipeline apihandlers.Pipeline) *chi.Mux {
	router := chi.NewRouter()
	router.Use(httpLogger.Logger("router", log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(WithVersionHeader)
	router.Use(middleware.Heartbeat("/healthz"))
	router.Use(otelchi.Middleware(
		serviceName,
		otelchi.WithChiRoutes(router),
		otelchi.WithRequestMethodInSpanName(true),
	))
	if len(cfg.Server.CustomHeaders) > 0 {
		router.Use(WithResponseHeaders(cfg.Server.CustomHeaders))
	}

	router.Get("/", apihandlers.RootHandler())
	router.Get("/status", apihandlers.StatusHandler(pipeline))
	router.Get("/collections", apihandlers.CollectionsHandler(pipeline))
	router.Post("/upload/{collectionName}", apihandlers.UploadHandler(pipeline, cfg))
	router.Post("/search", apihandlers.SearchHandler(pipeline, cfg))
	router.Post("/rag-inference", apihandlers.RAGHandler(pipeline, cfg))

	return router
}
