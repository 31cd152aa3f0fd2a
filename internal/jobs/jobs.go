// Package jobs runs imports asynchronously. Submitting returns an import
// ID immediately; a bounded worker pool drains the queue, and the poll
// surface reports each job's progress until its import document lands.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"encore/internal/logging"
	"encore/internal/scoreimport"
	"encore/internal/sources"
	"encore/internal/storage"
)

const queueDepth = 256

// Poll status values.
const (
	StatusCompleted = "completed"
	StatusOngoing   = "ongoing"
	StatusFailed    = "failed"
	StatusNotFound  = "not-found"
)

// PollResult is one answer from the poll surface.
type PollResult struct {
	Status string `json:"status"`
	// Done/Total are populated while ongoing.
	Done  int `json:"done,omitempty"`
	Total int `json:"total,omitempty"`
	// StatusCode/Message are populated for failures.
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message,omitempty"`
	// Import is populated on completion.
	Import *storage.ImportDocument `json:"import,omitempty"`
}

type job struct {
	importID   string
	userID     int
	importType string
	input      sources.Input
}

type jobState struct {
	done, total int
	failed      *sources.FatalError
}

// Runner owns the queue and worker pool.
type Runner struct {
	importer *scoreimport.Importer
	store    *storage.Store
	logger   *slog.Logger

	queue chan job
	wg    sync.WaitGroup

	mu     sync.Mutex
	states map[string]*jobState
}

func NewRunner(importer *scoreimport.Importer, store *storage.Store, logger *slog.Logger) *Runner {
	return &Runner{
		importer: importer,
		store:    store,
		logger:   logger,
		queue:    make(chan job, queueDepth),
		states:   map[string]*jobState{},
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled and
// the queue is drained via Stop.
func (r *Runner) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for range workers {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j, ok := <-r.queue:
					if !ok {
						return
					}
					r.run(ctx, j)
				}
			}
		}()
	}
}

// Stop closes intake and waits for in-flight imports to finish.
func (r *Runner) Stop() {
	close(r.queue)
	r.wg.Wait()
}

// Submit queues an import and returns its ID. A full queue is backpressure,
// reported as an error rather than blocking the caller's request.
func (r *Runner) Submit(userID int, importType string, input sources.Input) (string, error) {
	importID := uuid.NewString()

	r.mu.Lock()
	r.states[importID] = &jobState{}
	r.mu.Unlock()

	select {
	case r.queue <- job{importID: importID, userID: userID, importType: importType, input: input}:
		return importID, nil
	default:
		r.mu.Lock()
		delete(r.states, importID)
		r.mu.Unlock()
		return "", fmt.Errorf("import queue is full")
	}
}

func (r *Runner) run(ctx context.Context, j job) {
	progress := func(done, total int) {
		r.mu.Lock()
		if st := r.states[j.importID]; st != nil {
			st.done, st.total = done, total
		}
		r.mu.Unlock()
	}

	_, err := r.importer.Run(ctx, j.importID, j.userID, j.importType, j.input, progress, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		logging.WithSubject(r.logger, "jobs").Error("import failed", "importID", j.importID, "error", err)
		fatal, ok := sources.AsFatal(err)
		if !ok {
			fatal = sources.Fatalf(http.StatusInternalServerError, "internal server error")
		}
		r.states[j.importID] = &jobState{failed: fatal}
		return
	}
	// The import document is the durable record now.
	delete(r.states, j.importID)
}

// Poll answers one status request. Completed imports answer from storage
// forever; a failure is held in memory and dropped once it has been
// reported, so its first poll is also its last.
func (r *Runner) Poll(ctx context.Context, importID string) (*PollResult, error) {
	doc, err := r.store.FindImport(ctx, importID)
	if err != nil {
		return nil, fmt.Errorf("import lookup: %w", err)
	}
	if doc != nil {
		return &PollResult{Status: StatusCompleted, Import: doc}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[importID]
	if !ok {
		return &PollResult{Status: StatusNotFound}, nil
	}
	if st.failed != nil {
		delete(r.states, importID)
		return &PollResult{
			Status:     StatusFailed,
			StatusCode: st.failed.StatusCode,
			Message:    st.failed.Message,
		}, nil
	}
	return &PollResult{Status: StatusOngoing, Done: st.done, Total: st.total}, nil
}
