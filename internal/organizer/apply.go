package organizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Nomadcxx/jellyname/internal/logging"
)

// Apply performs ops in order and records every outcome in a journal.
// Per-file failures are recorded, not returned. Unless dryRun is set the
// journal is written before the first change and updated at the end, so an
// interrupted run can still be undone. The returned error is only non-nil
// when the journal cannot be written or ctx is cancelled.
func (o *Organizer) Apply(ctx context.Context, ops []Operation, dryRun bool) (*Journal, error) {
	j := &Journal{
		ID:         fmt.Sprintf("rename_%s_%s", time.Now().Format("20060102_150405"), uuid.NewString()[:8]),
		CreatedAt:  time.Now(),
		DryRun:     dryRun,
		Status:     StatusInProgress,
		Operations: []JournalEntry{},
	}

	var journalDir string
	if !dryRun {
		dir, err := o.journalDirectory()
		if err != nil {
			return nil, err
		}
		journalDir = dir
		if err := j.save(journalDir); err != nil {
			return nil, err
		}
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return j, o.finish(j, err)
		}

		if op.Noop() {
			j.Operations = append(j.Operations, JournalEntry{
				Type:      op.Type,
				OldPath:   op.Source,
				NewPath:   op.Target,
				Timestamp: time.Now(),
				Success:   true,
				Skipped:   true,
			})
			continue
		}

		if dryRun {
			j.record(op.Type, op.Source, op.Target, nil)
			continue
		}

		err := o.applyOne(op)
		j.record(op.Type, op.Source, op.Target, err)
		if err != nil {
			o.logger.Warn("rename failed",
				zap.String(logging.FieldFile, op.Source),
				zap.String("target", op.Target),
				zap.Error(err))
			continue
		}
		o.logger.Info("renamed",
			zap.String(logging.FieldFile, op.Source),
			zap.String("target", op.Target))
	}

	return j, o.finish(j, nil)
}

func (o *Organizer) finish(j *Journal, cause error) error {
	if cause == nil {
		j.Status = StatusCompleted
	}
	if j.DryRun {
		return cause
	}
	if err := j.Save(); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (o *Organizer) applyOne(op Operation) error {
	if _, err := os.Lstat(op.Target); err == nil {
		return fmt.Errorf("target already exists: %s", op.Target)
	}
	if err := os.MkdirAll(filepath.Dir(op.Target), 0755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}
	return moveFile(op.Source, op.Target)
}

// moveFile renames src to dst, falling back to copy and delete when they
// are on different filesystems.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}
