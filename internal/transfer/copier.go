// Package transfer copies shared Drive files and folder trees into the
// gateway's root folder.
//
// Folder copies run as an explicit depth-first worklist rather than
// recursion, bounded by a maximum depth and by the caller's context. There is
// no rollback: items copied before a failure stay copied.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultMaxDepth bounds how deep a folder tree copy descends.
const DefaultMaxDepth = 64

// ErrTreeTooDeep is returned when a source tree nests deeper than the
// configured maximum depth.
var ErrTreeTooDeep = errors.New("transfer: folder tree exceeds maximum depth")

// CopyStats counts what a tree copy created before it finished or aborted.
type CopyStats struct {
	Folders int
	Files   int
}

// copyTask is one pending folder on the worklist.
type copyTask struct {
	sourceID     string
	destParentID string
	name         string // empty for the root task, which looks its name up
	depth        int
}

// TreeCopier replicates a Drive folder tree under a destination folder.
type TreeCopier struct {
	drive    TreeDrive
	logger   *slog.Logger
	maxDepth int
}

// NewTreeCopier creates a TreeCopier. maxDepth <= 0 uses DefaultMaxDepth.
func NewTreeCopier(drive TreeDrive, maxDepth int, logger *slog.Logger) *TreeCopier {
	if logger == nil {
		logger = slog.Default()
	}

	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	return &TreeCopier{drive: drive, logger: logger, maxDepth: maxDepth}
}

// CopyTree creates a folder named like sourceFolderID under destParentID and
// copies the source's whole subtree into it, one item at a time. The first
// failing call aborts the remaining tree and is returned wrapped; stats
// report what was created up to that point.
func (tc *TreeCopier) CopyTree(ctx context.Context, sourceFolderID, destParentID string) (CopyStats, error) {
	var stats CopyStats

	stack := []copyTask{{sourceID: sourceFolderID, destParentID: destParentID}}

	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		subfolders, err := tc.copyFolder(ctx, task, &stats)
		if err != nil {
			tc.logger.Warn("folder copy aborted",
				slog.String("source_id", task.sourceID),
				slog.Int("depth", task.depth),
				slog.Int("folders", stats.Folders),
				slog.Int("files", stats.Files),
				slog.String("error", err.Error()),
			)

			return stats, err
		}

		// Push in reverse so the first subfolder in listing order is copied next.
		for i := len(subfolders) - 1; i >= 0; i-- {
			stack = append(stack, subfolders[i])
		}
	}

	tc.logger.Info("folder tree copied",
		slog.String("source_id", sourceFolderID),
		slog.Int("folders", stats.Folders),
		slog.Int("files", stats.Files),
	)

	return stats, nil
}

// copyFolder creates the destination folder for task, copies the files it
// contains and returns its subfolders as new tasks.
func (tc *TreeCopier) copyFolder(ctx context.Context, task copyTask, stats *CopyStats) ([]copyTask, error) {
	if task.depth > tc.maxDepth {
		return nil, fmt.Errorf("%w: %s at depth %d", ErrTreeTooDeep, task.sourceID, task.depth)
	}

	name := task.name
	if name == "" {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}

		src, err := tc.drive.GetItem(ctx, task.sourceID, "name")
		if err != nil {
			return nil, fmt.Errorf("transfer: reading folder %s: %w", task.sourceID, err)
		}

		name = src.Name
	}

	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	created, err := tc.drive.CreateFolder(ctx, name, task.destParentID)
	if err != nil {
		return nil, fmt.Errorf("transfer: creating folder %q: %w", name, err)
	}

	stats.Folders++

	tc.logger.Debug("created folder",
		slog.String("source_id", task.sourceID),
		slog.String("new_id", created.ID),
		slog.String("name", name),
		slog.Int("depth", task.depth),
	)

	var (
		subfolders []copyTask
		pageToken  string
	)

	for {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}

		children, next, err := tc.drive.ListChildrenPage(ctx, task.sourceID, pageToken)
		if err != nil {
			return nil, fmt.Errorf("transfer: listing folder %s: %w", task.sourceID, err)
		}

		for i := range children {
			child := &children[i]

			if child.IsFolder {
				subfolders = append(subfolders, copyTask{
					sourceID:     child.ID,
					destParentID: created.ID,
					name:         child.Name,
					depth:        task.depth + 1,
				})

				continue
			}

			if err := checkCtx(ctx); err != nil {
				return nil, err
			}

			if _, err := tc.drive.CopyItem(ctx, child.ID, created.ID); err != nil {
				return nil, fmt.Errorf("transfer: copying file %s: %w", child.ID, err)
			}

			stats.Files++
		}

		if next == "" {
			return subfolders, nil
		}

		pageToken = next
	}
}

// checkCtx reports a canceled or expired context before a remote call.
func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transfer: copy aborted: %w", err)
	}

	return nil
}
