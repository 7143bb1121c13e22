package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/feanor77ist/Basketball-AI-BE/internal/api"
	"github.com/feanor77ist/Basketball-AI-BE/internal/config"
	"github.com/feanor77ist/Basketball-AI-BE/internal/db"
	"github.com/feanor77ist/Basketball-AI-BE/internal/inference"
	"github.com/feanor77ist/Basketball-AI-BE/internal/jobs"
	"github.com/feanor77ist/Basketball-AI-BE/internal/media"
	"github.com/feanor77ist/Basketball-AI-BE/internal/pipeline"
	"github.com/feanor77ist/Basketball-AI-BE/internal/repository"
	"github.com/feanor77ist/Basketball-AI-BE/internal/scheduler"
	"github.com/feanor77ist/Basketball-AI-BE/internal/watcher"
)

func main() {
	log.Println("Basketball AI backend starting...")

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	cfg.MergeFromDB(database.DB)

	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		log.Fatalf("uploads dir: %v", err)
	}

	videoRepo := repository.NewVideoRepository(database.DB)
	playerRepo := repository.NewPlayerRepository(database.DB)
	predRepo := repository.NewPredictionRepository(database.DB)
	actionRepo := repository.NewActionRepository(database.DB)
	hlRepo := repository.NewHighlightRepository(database.DB)
	statsRepo := repository.NewStatsRepository(database.DB)

	sm := pipeline.NewStateMachine(videoRepo)

	clipper, err := media.NewClipper(cfg.FFmpegPath, cfg.DataDir)
	if err != nil {
		log.Fatalf("clip workspace: %v", err)
	}

	runner := pipeline.NewRunner(predRepo, pipeline.RunnerConfig{
		SegmentLength:    cfg.Pipeline.SegmentLength,
		MinTailFraction:  cfg.Pipeline.MinTailFraction,
		Concurrency:      cfg.Pipeline.SegmentConcurrency,
		MaxRetries:       cfg.Pipeline.MaxRetries,
		RetryBackoff:     time.Duration(cfg.Pipeline.RetryBackoffMs) * time.Millisecond,
		CallTimeout:      time.Duration(cfg.Pipeline.CallTimeoutMs) * time.Millisecond,
		FailureTolerance: cfg.Pipeline.FailureTolerance,
		AdapterRPS:       cfg.Pipeline.AdapterRPS,
	})
	aggregator := pipeline.NewAggregator(pipeline.AggregatorConfig{
		ConfidenceThreshold: cfg.Pipeline.ConfidenceThreshold,
		CentroidMaxDistance: cfg.Pipeline.CentroidMaxDistance,
	})
	selector := pipeline.NewSelector(clipper)

	queue := jobs.NewQueue(cfg.RedisAddr, 4)

	srv := api.NewServer(cfg, database.DB, queue, sm, api.NewWSHub())

	deps := &jobs.Deps{
		SM:          sm,
		Queue:       queue,
		Notifier:    srv.WSHub(),
		Videos:      videoRepo,
		Players:     playerRepo,
		Predictions: predRepo,
		Actions:     actionRepo,
		Highlights:  hlRepo,
		Stats:       statsRepo,
		Runner:      runner,
		Aggregator:  aggregator,
		Selector:    selector,
		Detection:   inference.NewDetectionAdapter(cfg.DetectionURL, cfg.Pipeline.SegmentConcurrency),
		Recognition: inference.NewRecognitionAdapter(cfg.RecognitionURL, cfg.Pipeline.SegmentConcurrency),
		Ball:        inference.NewBallAdapter(cfg.BallURL, cfg.Pipeline.SegmentConcurrency),
		Cfg:         cfg.Pipeline,
	}
	jobs.RegisterHandlers(queue, deps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := queue.Start(ctx); err != nil {
		log.Fatalf("job queue failed: %v", err)
	}

	prober := media.NewFFprobe(cfg.FFprobePath)
	fw, err := watcher.New(cfg.UploadsDir, videoRepo, queue, prober)
	if err != nil {
		log.Fatalf("watcher init failed: %v", err)
	}
	if err := fw.Start(); err != nil {
		log.Fatalf("watcher start failed: %v", err)
	}

	sweep := scheduler.New(videoRepo, queue)
	sweep.Start()

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	sweep.Stop()
	fw.Stop()
	queue.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}
