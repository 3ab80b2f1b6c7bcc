package worker

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// MediaRemover deletes a stored object behind a locator, swallowing errors.
type MediaRemover interface {
	Remove(locator string)
}

// TeamSweeper conditionally deletes a team whose member count reached zero.
type TeamSweeper interface {
	DeleteTeamIfEmpty(ctx context.Context, code string) (bool, error)
}

type taskKind int

const (
	taskMediaRemove taskKind = iota
	taskTeamSweep
)

type task struct {
	kind     taskKind
	locator  string
	teamCode string
}

// CleanupWorker runs the deferred obligations member mutations leave behind:
// deleting replaced or orphaned avatars and sweeping teams that dropped to
// zero members. Every task gets exactly one attempt; failures are logged and
// reported, never retried and never surfaced to the request that queued
// them.
type CleanupWorker struct {
	Media  MediaRemover
	Logger *logrus.Logger

	// Sweeper is assigned after construction: the service that performs the
	// sweep itself holds this worker as its cleanup scheduler.
	Sweeper TeamSweeper

	tasks chan task
}

func NewCleanupWorker(media MediaRemover, queueSize int, logger *logrus.Logger) *CleanupWorker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &CleanupWorker{
		Media:  media,
		Logger: logger,
		tasks:  make(chan task, queueSize),
	}
}

// MediaRemove queues deletion of a stored avatar. Never blocks.
func (w *CleanupWorker) MediaRemove(locator string) {
	w.enqueue(task{kind: taskMediaRemove, locator: locator})
}

// TeamSweep queues an empty-team check for the given code. Never blocks.
func (w *CleanupWorker) TeamSweep(code string) {
	w.enqueue(task{kind: taskTeamSweep, teamCode: code})
}

func (w *CleanupWorker) enqueue(t task) {
	select {
	case w.tasks <- t:
	default:
		// Dropping is acceptable: a later reconciliation can reclaim what a
		// full queue left behind.
		w.Logger.WithField("kind", t.kind).Warn("Cleanup queue full, dropping task")
		sentry.CaptureMessage("cleanup queue full, task dropped")
	}
}

// Start consumes tasks until the context is cancelled.
func (w *CleanupWorker) Start(ctx context.Context) {
	w.Logger.Info("Cleanup worker started")
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("Cleanup worker shutting down...")
			return
		case t := <-w.tasks:
			w.process(t)
		}
	}
}

// Drain processes everything currently queued and returns. Used in tests and
// at shutdown.
func (w *CleanupWorker) Drain() {
	for {
		select {
		case t := <-w.tasks:
			w.process(t)
		default:
			return
		}
	}
}

func (w *CleanupWorker) process(t task) {
	switch t.kind {
	case taskMediaRemove:
		w.Media.Remove(t.locator)
	case taskTeamSweep:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		deleted, err := w.Sweeper.DeleteTeamIfEmpty(ctx, t.teamCode)
		if err != nil {
			w.Logger.WithField("team_code", t.teamCode).WithError(err).Error("Empty-team sweep failed")
			sentry.CaptureException(err)
			return
		}
		if deleted {
			w.Logger.WithField("team_code", t.teamCode).Info("Removed empty team")
		}
	}
}
