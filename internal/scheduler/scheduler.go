package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/feanor77ist/Basketball-AI-BE/internal/jobs"
	"github.com/feanor77ist/Basketball-AI-BE/internal/pipeline"
	"github.com/feanor77ist/Basketball-AI-BE/internal/repository"
)

// Scheduler sweeps for stuck videos on a regular interval. A video sitting
// in a non-terminal status with no recent update lost its stage task (crash,
// redis flush); the sweep re-queues the stage its status calls for.
type Scheduler struct {
	videos       *repository.VideoRepository
	queue        *jobs.Queue
	interval     time.Duration
	stuckMinutes int
	stop         chan struct{}
}

func New(videos *repository.VideoRepository, queue *jobs.Queue) *Scheduler {
	return &Scheduler{
		videos:       videos,
		queue:        queue,
		interval:     60 * time.Second,
		stuckMinutes: 15,
		stop:         make(chan struct{}),
	}
}

// Start begins the ticker loop.
func (s *Scheduler) Start() {
	go s.run()
	log.Println("[scheduler] stuck-video sweep started (60s interval)")
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) run() {
	// Initial check after a short delay
	time.Sleep(10 * time.Second)
	s.check()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.check()
		case <-s.stop:
			log.Println("[scheduler] scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	videos, err := s.videos.ListStuck(ctx, s.stuckMinutes)
	if err != nil {
		log.Printf("[scheduler] error listing stuck videos: %v", err)
		return
	}

	for _, v := range videos {
		stage, ok := pipeline.NextStageFor(v.Status)
		if !ok {
			continue
		}
		log.Printf("[scheduler] video %s stuck in %s, re-queueing stage %s", v.ID, v.Status, stage)
		if err := s.queue.EnqueueStage(stage, v.ID); err != nil {
			log.Printf("[scheduler] error re-queueing video %s: %v", v.ID, err)
		}
	}
}
