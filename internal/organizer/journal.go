package organizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Journal statuses
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusReverted   = "reverted"
)

// JournalEntry records the outcome of one applied operation.
type JournalEntry struct {
	Type      string    `json:"type"`
	OldPath   string    `json:"old_path"`
	NewPath   string    `json:"new_path"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Skipped   bool      `json:"skipped,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Journal is the persisted record of one Apply run, used by Undo.
type Journal struct {
	ID         string         `json:"journal_id"`
	CreatedAt  time.Time      `json:"created_at"`
	DryRun     bool           `json:"dry_run"`
	Status     string         `json:"status"`
	Operations []JournalEntry `json:"operations"`

	path string
}

// Path returns where the journal is stored, empty for unsaved journals
func (j *Journal) Path() string {
	return j.path
}

// Succeeded counts operations that changed the filesystem
func (j *Journal) Succeeded() int {
	n := 0
	for _, op := range j.Operations {
		if op.Success && !op.Skipped {
			n++
		}
	}
	return n
}

// Failed counts operations that returned an error
func (j *Journal) Failed() int {
	n := 0
	for _, op := range j.Operations {
		if !op.Success {
			n++
		}
	}
	return n
}

func (j *Journal) record(opType, oldPath, newPath string, err error) {
	entry := JournalEntry{
		Type:      opType,
		OldPath:   oldPath,
		NewPath:   newPath,
		Timestamp: time.Now(),
		Success:   err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	j.Operations = append(j.Operations, entry)
}

// DefaultJournalDir returns ~/.local/share/jellyname/journals
func DefaultJournalDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "jellyname", "journals"), nil
}

func (o *Organizer) journalDirectory() (string, error) {
	if o.journalDir != "" {
		return o.journalDir, nil
	}
	return DefaultJournalDir()
}

// save writes the journal as indented JSON into dir, keeping its path
func (j *Journal) save(dir string) error {
	if j.path == "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create journal directory: %w", err)
		}
		j.path = filepath.Join(dir, j.ID+".json")
	}
	return j.Save()
}

// Save rewrites the journal file in place
func (j *Journal) Save() error {
	if j.path == "" {
		return errors.New("journal has no file path")
	}

	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}

	if err := os.WriteFile(j.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write journal file: %w", err)
	}
	return nil
}

// LoadJournal reads a journal from path
func LoadJournal(path string) (*Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}

	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("failed to parse journal: %w", err)
	}
	j.path = path
	return &j, nil
}

// ListJournals returns every readable journal in dir, newest first
func ListJournals(dir string) ([]*Journal, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	var journals []*Journal
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		j, err := LoadJournal(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		journals = append(journals, j)
	}

	sort.Slice(journals, func(a, b int) bool {
		return journals[a].CreatedAt.After(journals[b].CreatedAt)
	})
	return journals, nil
}

// UndoResult summarizes a journal revert.
type UndoResult struct {
	Reverted int
	Failed   int
	Errors   []string
}

// Undo reverses every successful operation of the journal at path, newest
// first. A revert never overwrites an existing file. The journal is marked
// reverted and saved.
func (o *Organizer) Undo(path string) (*UndoResult, error) {
	j, err := LoadJournal(path)
	if err != nil {
		return nil, err
	}
	if j.DryRun {
		return nil, errors.New("dry-run journal has nothing to revert")
	}
	if j.Status == StatusReverted {
		return nil, errors.New("journal already reverted")
	}
	if j.Succeeded() == 0 {
		return nil, errors.New("no operations to revert")
	}

	result := &UndoResult{}
	for i := len(j.Operations) - 1; i >= 0; i-- {
		op := j.Operations[i]
		if !op.Success || op.Skipped {
			continue
		}

		var revertErr error
		switch op.Type {
		case OpRename, OpMove:
			if _, statErr := os.Lstat(op.OldPath); statErr == nil {
				revertErr = fmt.Errorf("original path is occupied: %s", op.OldPath)
			} else {
				revertErr = moveFile(op.NewPath, op.OldPath)
			}
		default:
			revertErr = fmt.Errorf("unknown operation type: %s", op.Type)
		}

		if revertErr != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", op.NewPath, revertErr))
			o.logger.Warn("failed to revert",
				zap.String("from", op.NewPath),
				zap.String("to", op.OldPath),
				zap.Error(revertErr))
			continue
		}
		result.Reverted++
	}

	j.Status = StatusReverted
	if err := j.Save(); err != nil {
		return result, err
	}

	o.logger.Info("journal reverted",
		zap.String("journal", j.ID),
		zap.Int("reverted", result.Reverted),
		zap.Int("failed", result.Failed))
	return result, nil
}
