package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slidecast/internal/catalog"
	"slidecast/internal/media"
	"slidecast/internal/narration"
	"slidecast/internal/platform/config"
	"slidecast/internal/platform/logger"
	"slidecast/internal/platform/metrics"
	"slidecast/internal/render"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	mediaDir := config.GetEnv("MEDIA_DIR", "public/images")
	ttsURL := config.GetEnv("TTS_URL", "http://127.0.0.1:8001")
	ffmpegBin := config.GetEnv("FFMPEG_BIN", "ffmpeg")
	renderTimeout := time.Duration(config.GetEnvInt("RENDER_TIMEOUT_SECONDS", 600)) * time.Second
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	renderDefaults := render.DefaultOptions()
	renderDefaults.OutputDir = config.GetEnv("OUTPUT_DIR", renderDefaults.OutputDir)
	renderDefaults.CleanupImages = config.GetEnvBool("CLEANUP_IMAGES", renderDefaults.CleanupImages)
	renderDefaults.CleanupAudio = config.GetEnvBool("CLEANUP_AUDIO", renderDefaults.CleanupAudio)

	log := logger.New(logLevel, logFormat)

	assets := media.NewStore(mediaDir, logger.WithComponent(log, "media"))
	invoker := render.NewInvoker(ffmpegBin, logger.WithComponent(log, "invoker"))
	pipeline := render.NewPipeline(assets, invoker, renderTimeout, logger.WithComponent(log, "pipeline"))
	tts := narration.NewClient(ttsURL, logger.WithComponent(log, "narration"))
	categories := catalog.NewInMemoryRepository()

	met := metrics.New()
	catalogHandler := catalog.NewHandler(categories, mediaDir, log)
	mediaHandler := media.NewHandler(assets, log, met)
	narrationHandler := narration.NewHandler(tts, assets, log)
	renderHandler := render.NewHandler(pipeline, assets, renderDefaults, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() { met.SetActiveRenders(pipeline.ActiveRenders()) }).ServeHTTP(w, req)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", catalogHandler.List)
		r.Post("/", catalogHandler.Create)
		r.Route("/{category_id}", func(r chi.Router) {
			r.Get("/", catalogHandler.Get)
			r.Put("/", catalogHandler.Update)
			r.Delete("/", catalogHandler.Delete)
			r.Post("/folders", catalogHandler.CreateFolder)
		})
	})

	r.Route("/media/{category}/{folder}", func(r chi.Router) {
		r.Post("/images", mediaHandler.UploadImages)
		r.Get("/images", mediaHandler.ListImages)
		r.Post("/videos", mediaHandler.UploadVideos)
		r.Get("/videos", mediaHandler.ListVideos)
		r.Post("/mixed", mediaHandler.UploadMixed)
		r.Get("/statistics", mediaHandler.Statistics)
		r.Get("/exists/{file}", mediaHandler.Exists)
		r.Get("/path/{file}", mediaHandler.FilePath)
		r.Delete("/{file}", mediaHandler.DeleteFile)
	})

	r.Post("/narration/{category}/{folder}", narrationHandler.Generate)

	r.Route("/render/{category}/{folder}", func(r chi.Router) {
		r.Post("/", renderHandler.Generate)
		r.Get("/status", renderHandler.Status)
	})

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"media_dir", mediaDir,
		"output_dir", renderDefaults.OutputDir,
		"tts_url", ttsURL,
		"ffmpeg_bin", ffmpegBin,
		"render_timeout", renderTimeout.String(),
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
