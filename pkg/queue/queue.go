// Package queue processes download items strictly one at a time and fans
// their lifecycle out to an event sink.
package queue

import (
	"context"
	"sync/atomic"

	"main/pkg/logger"
	"main/pkg/models"
)

// Sink receives queue lifecycle events. Implementations must not block;
// events are emitted from the processing goroutine.
type Sink interface {
	Progress(index int, pct float64)
	Completed(index int, outputPath string)
	Failed(index int, message string)
}

// Workflow is the per-item download pipeline.
type Workflow interface {
	Run(ctx context.Context, item *models.DownloadItem, onProgress func(pct float64)) (string, error)
}

// Processor walks a slice of items in order. One item downloads at a time;
// a failing item never stops the ones behind it.
type Processor struct {
	workflow Workflow
	sink     Sink
	active   atomic.Int32
}

// NewProcessor creates a processor emitting events into sink.
func NewProcessor(workflow Workflow, sink Sink) *Processor {
	return &Processor{workflow: workflow, sink: sink}
}

// Active returns the number of items currently downloading: 0 or 1, the
// queue is strictly sequential.
func (p *Processor) Active() int {
	return int(p.active.Load())
}

// Run processes items in order, skipping entries that already finished.
// Cancellation stops between items and mid-transfer; a cancelled item keeps
// a non-terminal status so a later run picks it up again.
func (p *Processor) Run(ctx context.Context, items []*models.DownloadItem) {
	log := logger.GetLogger()

	for i, item := range items {
		if ctx.Err() != nil {
			return
		}
		if item.IsTerminal() {
			continue
		}

		p.runOne(ctx, i, item)

		if ctx.Err() != nil {
			return
		}
		log.WithFields(map[string]interface{}{
			"index": i,
			"title": item.Title,
			"state": item.Status,
		}).Info("Queue item finished")
	}
}

func (p *Processor) runOne(ctx context.Context, index int, item *models.DownloadItem) {
	p.active.Add(1)
	defer p.active.Add(-1)

	item.Status = models.StatusDownloading
	item.Progress = 0

	outPath, err := p.workflow.Run(ctx, item, func(pct float64) {
		item.Progress = pct
		p.sink.Progress(index, pct)
	})

	if err != nil {
		if ctx.Err() != nil {
			// cancelled, not failed: back to queued so the next run
			// picks it up
			if item.Collection {
				item.Status = models.StatusQueuedCollection
			} else {
				item.Status = models.StatusQueued
			}
			return
		}
		item.Status = models.StatusFailed(err.Error())
		p.sink.Failed(index, err.Error())
		return
	}

	item.Status = models.StatusCompleted
	item.Progress = 100
	item.DestinationPath = outPath
	p.sink.Completed(index, outPath)
}
