package config

import (
	"database/sql"
	"log"
	"os"
	"strconv"
)

type Config struct {
	Port        int
	DatabaseURL string
	RedisAddr   string
	DataDir     string
	UploadsDir  string

	FFmpegPath  string
	FFprobePath string

	DetectionURL   string
	RecognitionURL string
	BallURL        string

	Pipeline PipelineConfig
}

// PipelineConfig carries the processing knobs shared by the segment runner,
// aggregator and highlight selector.
type PipelineConfig struct {
	SegmentLength       float64 // seconds per inference segment
	MinTailFraction     float64 // below this fraction of SegmentLength, the tail merges into the prior segment
	SegmentConcurrency  int     // parallel in-flight segment calls per engine
	MaxRetries          int     // per-segment retry bound
	RetryBackoffMs      int     // base backoff, doubled per attempt
	CallTimeoutMs       int     // per adapter call
	FailureTolerance    float64 // max fraction of failed segments before the stage fails
	AdapterRPS          float64 // rate limit toward each inference engine
	ConfidenceThreshold float64 // minimum confidence for a committed action
	CentroidMaxDistance float64 // nearest-centroid reconciliation cutoff (normalized coords)
	MinTrackAppearances int     // segments a track must appear in to become a player
	ClipPadding         float64 // seconds added before/after each highlight clip
}

func Load() *Config {
	return &Config{
		Port:        envInt("PORT", 8080),
		DatabaseURL: env("DATABASE_URL", "postgres://basketball:basketball@db:5432/basketball?sslmode=disable"),
		RedisAddr:   env("REDIS_ADDR", "redis:6379"),
		DataDir:     env("DATA_DIR", "/data"),
		UploadsDir:  env("UPLOADS_DIR", "/data/uploads"),

		FFmpegPath:  env("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: env("FFPROBE_PATH", "ffprobe"),

		DetectionURL:   env("DETECTION_MODEL_URL", "http://detection:9090"),
		RecognitionURL: env("RECOGNITION_MODEL_URL", "http://recognition:9091"),
		BallURL:        env("BALL_MODEL_URL", "http://ball:9092"),

		Pipeline: PipelineConfig{
			SegmentLength:       envFloat("SEGMENT_LENGTH", 3.0),
			MinTailFraction:     envFloat("SEGMENT_MIN_TAIL_FRACTION", 1.0/3.0),
			SegmentConcurrency:  envInt("SEGMENT_CONCURRENCY", 4),
			MaxRetries:          envInt("SEGMENT_MAX_RETRIES", 3),
			RetryBackoffMs:      envInt("SEGMENT_RETRY_BACKOFF_MS", 500),
			CallTimeoutMs:       envInt("ADAPTER_CALL_TIMEOUT_MS", 30000),
			FailureTolerance:    envFloat("SEGMENT_FAILURE_TOLERANCE", 0.10),
			AdapterRPS:          envFloat("ADAPTER_RPS", 8),
			ConfidenceThreshold: envFloat("CONFIDENCE_THRESHOLD", 0.5),
			CentroidMaxDistance: envFloat("CENTROID_MAX_DISTANCE", 0.15),
			MinTrackAppearances: envInt("MIN_TRACK_APPEARANCES", 10),
			ClipPadding:         envFloat("CLIP_PADDING", 1.0),
		},
	}
}

// MergeFromDB overrides selected settings from the settings table, when present.
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM settings")
	if err != nil {
		log.Printf("config: skipping DB merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "segment_length":
			if v, err := strconv.ParseFloat(value, 64); err == nil && v > 0 {
				c.Pipeline.SegmentLength = v
			}
		case "confidence_threshold":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				c.Pipeline.ConfidenceThreshold = v
			}
		case "segment_concurrency":
			if v, err := strconv.Atoi(value); err == nil && v > 0 {
				c.Pipeline.SegmentConcurrency = v
			}
		case "clip_padding":
			if v, err := strconv.ParseFloat(value, 64); err == nil && v >= 0 {
				c.Pipeline.ClipPadding = v
			}
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
