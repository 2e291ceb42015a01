package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"main/pkg/client"
	"main/pkg/config"
	"main/pkg/ffmpeg"
	"main/pkg/logger"
	"main/pkg/models"
	"main/pkg/processor"
	"main/pkg/queue"
	"main/pkg/resolver"
	"main/pkg/retry"
)

// logSink logs queue events. Progress is throttled to 10% steps so a long
// transfer doesn't flood the output.
type logSink struct {
	log  *logrus.Logger
	mu   sync.Mutex
	last map[int]int
}

func newLogSink(log *logrus.Logger) *logSink {
	return &logSink{log: log, last: map[int]int{}}
}

func (s *logSink) Progress(index int, pct float64) {
	step := int(pct) / 10
	s.mu.Lock()
	if step == s.last[index] {
		s.mu.Unlock()
		return
	}
	s.last[index] = step
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"index": index, "percent": int(pct)}).Info("Downloading")
}

func (s *logSink) Completed(index int, outputPath string) {
	s.log.WithFields(logrus.Fields{"index": index, "path": outputPath}).Info("Completed")
}

func (s *logSink) Failed(index int, message string) {
	s.log.WithFields(logrus.Fields{"index": index, "reason": message}).Error("Failed")
}

func main() {
	fmt.Println("vidqueue")

	cfg, err := config.ParseCfg()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.GetLogger()
	logger.SetVerbose(cfg.Verbose)

	post := ffmpeg.New(cfg.FfmpegPath)
	if cfg.AudioOnly && !post.Available() {
		log.Warn("ffmpeg not found; audio items needing conversion will fail")
	}

	handle, err := client.NewHandle(func() (*client.Client, error) {
		return client.NewClient(cfg.BaseURL)
	})
	if err != nil {
		log.WithError(err).Fatal("Cannot build platform client")
	}

	policy := retry.NewPolicy()
	res := resolver.New(handle, policy)
	workflow := processor.New(handle, policy, post)
	manager := queue.NewManager(res, queue.NewProcessor(workflow, newLogSink(log)))

	// an interrupt pauses the queue; in-flight work stops at the next
	// cancellation point
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("Interrupt received, pausing queue")
		manager.PauseAll()
	}()

	kind := models.KindVideo
	if cfg.AudioOnly {
		kind = models.KindAudio
	}

	queued := 0
	for _, rawURL := range cfg.Urls {
		item, err := manager.AddItem(ctx, rawURL, kind, cfg.Quality, cfg.AudioFormat, cfg.OutPath)
		if err != nil {
			log.WithError(err).WithField("url", rawURL).Error("Cannot queue URL")
			continue
		}
		entry := log.WithFields(logrus.Fields{"title": item.Title, "kind": item.Kind.String()})
		if item.Size != "" {
			entry = entry.WithField("size", item.Size)
		}
		entry.Info("Queued")
		queued++
	}
	if queued == 0 {
		log.Fatal("Nothing to download")
	}

	manager.StartAll()
	manager.Wait()

	completed, failed := 0, 0
	for _, item := range manager.Items() {
		switch {
		case item.Status == models.StatusCompleted:
			completed++
		case item.IsTerminal():
			failed++
		}
	}
	log.WithFields(logrus.Fields{
		"queued":    queued,
		"completed": completed,
		"failed":    failed,
	}).Info("Queue finished")

	manager.Dispose()
	if failed > 0 {
		os.Exit(1)
	}
}
