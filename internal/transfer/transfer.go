package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tonimelisma/drivegate/internal/metrics"
	"github.com/tonimelisma/drivegate/internal/sharelink"
)

// Outcome distinguishes a launched folder copy from a finished file copy.
type Outcome int

const (
	// OutcomeStarted means a folder copy was launched in the background.
	// Its completion is not known to the caller.
	OutcomeStarted Outcome = iota + 1
	// OutcomeCompleted means a file copy finished; Readiness says whether
	// Drive has finished processing it.
	OutcomeCompleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Result describes what a Transfer did.
type Result struct {
	Outcome  Outcome
	SourceID string
	Name     string
	IsFolder bool

	// NewID and Readiness are set for OutcomeCompleted.
	NewID     string
	Readiness PollResult

	// Folder is set for OutcomeStarted.
	Folder *FolderCopy
}

// Message renders the user-facing summary of the result.
func (r *Result) Message() string {
	if r.Outcome == OutcomeStarted {
		return fmt.Sprintf("Folder %q copy has started. Check the destination folder shortly.", r.Name)
	}

	switch r.Readiness.State {
	case ReadinessReady:
		return fmt.Sprintf("File %q copied and its metadata is ready.", r.Name)
	case ReadinessFailed:
		return fmt.Sprintf("File %q copied, but its readiness could not be confirmed.", r.Name)
	default:
		return fmt.Sprintf("File %q copied, but its metadata is still processing; an immediate download may fail.", r.Name)
	}
}

// FolderCopy is a handle on a background tree copy.
type FolderCopy struct {
	done  chan struct{}
	stats CopyStats
	err   error
}

// Wait blocks until the copy ends and returns its stats and error.
func (f *FolderCopy) Wait() (CopyStats, error) {
	<-f.done
	return f.stats, f.err
}

// Options tunes a Service. Zero values select package defaults.
type Options struct {
	MaxDepth     int
	PollAttempts int
	PollInterval time.Duration

	// FolderBudget bounds the wall time of one background folder copy.
	// Zero means unbounded.
	FolderBudget time.Duration

	Metrics *metrics.Metrics
}

// Service is the transfer entry point: it resolves a share link and copies
// the item it names into a destination folder.
type Service struct {
	drive   TreeDrive
	copier  *TreeCopier
	poller  *ReadinessPoller
	metrics *metrics.Metrics
	logger  *slog.Logger
	budget  time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a Service over drive.
func NewService(drive TreeDrive, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		drive:   drive,
		copier:  NewTreeCopier(drive, opts.MaxDepth, logger),
		poller:  NewReadinessPoller(drive, opts.PollAttempts, opts.PollInterval, logger),
		metrics: opts.Metrics,
		logger:  logger,
		budget:  opts.FolderBudget,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Transfer copies the item behind shareLink into destFolderID.
//
// A folder is copied in the background and Transfer returns OutcomeStarted
// at once; the copy is bounded by the folder budget, not by ctx. A file is
// copied synchronously and then polled for readiness under ctx.
// A malformed link returns a *sharelink.ParseError.
func (s *Service) Transfer(ctx context.Context, shareLink, destFolderID string) (*Result, error) {
	sourceID, err := sharelink.Extract(shareLink)
	if err != nil {
		return nil, err
	}

	src, err := s.drive.GetItem(ctx, sourceID, "name", "mimeType")
	if err != nil {
		s.metrics.RecordCopy("unknown", "error")
		return nil, fmt.Errorf("transfer: reading %s: %w", sourceID, err)
	}

	if src.IsFolder {
		return s.startFolderCopy(sourceID, src.Name, destFolderID), nil
	}

	return s.copyFile(ctx, sourceID, src.Name, destFolderID)
}

func (s *Service) copyFile(ctx context.Context, sourceID, name, destFolderID string) (*Result, error) {
	newID, err := s.drive.CopyItem(ctx, sourceID, destFolderID)
	if err != nil {
		s.metrics.RecordCopy("file", "error")
		return nil, fmt.Errorf("transfer: copying %s: %w", sourceID, err)
	}

	s.metrics.RecordCopiedItems(0, 1)

	poll := s.poller.AwaitReady(ctx, newID)
	s.metrics.RecordPollAttempts(poll.Attempts)
	s.metrics.RecordCopy("file", poll.State.String())

	s.logger.Info("file copied",
		slog.String("source_id", sourceID),
		slog.String("new_id", newID),
		slog.String("readiness", poll.State.String()),
		slog.Int("attempts", poll.Attempts),
	)

	return &Result{
		Outcome:   OutcomeCompleted,
		SourceID:  sourceID,
		Name:      name,
		NewID:     newID,
		Readiness: poll,
	}, nil
}

func (s *Service) startFolderCopy(sourceID, name, destFolderID string) *Result {
	fc := &FolderCopy{done: make(chan struct{})}

	ctx, cancel := s.baseCtx, context.CancelFunc(func() {})
	if s.budget > 0 {
		ctx, cancel = context.WithTimeout(s.baseCtx, s.budget)
	}

	s.metrics.RecordCopy("folder", "started")
	s.metrics.FolderCopyStarted()

	s.logger.Info("folder copy started",
		slog.String("source_id", sourceID),
		slog.String("name", name),
		slog.Duration("budget", s.budget),
	)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(fc.done)
		defer cancel()
		defer s.metrics.FolderCopyFinished()

		fc.stats, fc.err = s.copier.CopyTree(ctx, sourceID, destFolderID)
		s.metrics.RecordCopiedItems(fc.stats.Folders, fc.stats.Files)

		if fc.err != nil {
			s.metrics.RecordCopy("folder", "error")
			s.logger.Error("folder copy failed",
				slog.String("source_id", sourceID),
				slog.String("error", fc.err.Error()),
			)

			return
		}

		s.metrics.RecordCopy("folder", "completed")
	}()

	return &Result{
		Outcome:  OutcomeStarted,
		SourceID: sourceID,
		Name:     name,
		IsFolder: true,
		Folder:   fc,
	}
}

// Wait blocks until every background folder copy has ended.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Drain lets running folder copies finish until ctx ends, then cancels the
// rest. It reports whether every copy finished on its own.
func (s *Service) Drain(ctx context.Context) bool {
	finished := make(chan struct{})

	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.cancel()
		return true
	case <-ctx.Done():
		s.Shutdown()
		return false
	}
}

// Shutdown cancels running folder copies and waits for them to stop.
func (s *Service) Shutdown() {
	s.cancel()
	s.wg.Wait()
}
