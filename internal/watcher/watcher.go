package watcher

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/jobs"
	"github.com/feanor77ist/Basketball-AI-BE/internal/media"
	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
	"github.com/feanor77ist/Basketball-AI-BE/internal/repository"
)

// Watcher monitors the uploads directory: a video file dropped in from
// outside the API gets registered and pushed into the pipeline.
type Watcher struct {
	dir      string
	videos   *repository.VideoRepository
	queue    *jobs.Queue
	prober   *media.FFprobe
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	debounce map[string]*time.Timer
	stop     chan struct{}
}

func New(dir string, videos *repository.VideoRepository, queue *jobs.Queue, prober *media.FFprobe) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		dir:      dir,
		videos:   videos,
		queue:    queue,
		prober:   prober,
		watcher:  fw,
		debounce: make(map[string]*time.Timer),
		stop:     make(chan struct{}),
	}, nil
}

func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	go w.eventLoop()
	log.Printf("[watcher] watching uploads dir %s", w.dir)
	return nil
}

func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] error: %v", err)
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") ||
		strings.HasSuffix(base, ".part") {
		return
	}
	if !isVideoExtension(strings.ToLower(filepath.Ext(event.Name))) {
		return
	}

	// Debounce: large uploads arrive as a burst of writes; act 2s after
	// the last one.
	w.mu.Lock()
	if timer, ok := w.debounce[event.Name]; ok {
		timer.Stop()
	}
	path := event.Name
	w.debounce[path] = time.AfterFunc(2*time.Second, func() {
		w.mu.Lock()
		delete(w.debounce, path)
		w.mu.Unlock()
		w.register(path)
	})
	w.mu.Unlock()
}

// register creates a video row for the file and queues the pipeline. Files
// already registered (uploaded through the API into this same dir) are
// skipped by path.
func (w *Watcher) register(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	known, err := w.videos.ExistsByPath(ctx, path)
	if err != nil {
		log.Printf("[watcher] lookup %s: %v", path, err)
		return
	}
	if known {
		return
	}

	video := &models.Video{
		ID:           uuid.New(),
		FilePath:     path,
		OriginalName: filepath.Base(path),
		Status:       models.StatusUploaded,
	}

	if probe, err := w.prober.Probe(path); err != nil {
		log.Printf("[watcher] probe %s: %v", path, err)
	} else {
		video.Duration = probe.DurationSeconds()
		if stream, ok := probe.VideoStream(); ok {
			video.FPS = stream.FPS()
			video.Width = stream.Width
			video.Height = stream.Height
		}
	}

	if err := w.videos.Create(ctx, video); err != nil {
		log.Printf("[watcher] register %s: %v", path, err)
		return
	}

	if _, err := w.queue.EnqueueUnique(jobs.TaskProcessVideo, jobs.VideoPayload{VideoID: video.ID.String()}, jobs.TaskProcessVideo+":"+video.ID.String()); err != nil {
		log.Printf("[watcher] enqueue %s: %v", video.ID, err)
		return
	}
	log.Printf("[watcher] registered %s as video %s", filepath.Base(path), video.ID)
}

func isVideoExtension(ext string) bool {
	video := map[string]bool{
		".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
		".m4v": true, ".wmv": true, ".flv": true, ".webm": true,
		".ts": true, ".mpg": true, ".mpeg": true,
	}
	return video[ext]
}
