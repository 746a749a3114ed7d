package reporter

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Nomadcxx/jellyname/internal/organizer"
)

// Report kinds
const (
	KindRename  = "rename"
	KindProcess = "process"
	KindSweep   = "sweep"
)

// Report is the persisted summary of one rename, archive or inbox run.
type Report struct {
	Timestamp time.Time                    `json:"timestamp"`
	Kind      string                       `json:"kind"`
	Source    string                       `json:"source"`
	Results   []organizer.ProcessingResult `json:"results,omitempty"`
	Journal   *organizer.Journal           `json:"journal,omitempty"`
	Errors    []string                     `json:"errors,omitempty"`
}

// TotalFiles counts processed archive files and successful renames
func (r Report) TotalFiles() int {
	n := 0
	for _, result := range r.Results {
		n += len(result.Files)
	}
	if r.Journal != nil {
		n += r.Journal.Succeeded()
	}
	return n
}

// TotalSize sums the size of every processed archive file
func (r Report) TotalSize() int64 {
	var size int64
	for _, result := range r.Results {
		size += result.TotalSize
	}
	return size
}

// DefaultDir returns the report directory path
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "jellyname", "reports")
	}
	return filepath.Join(home, ".local", "share", "jellyname", "reports")
}

// Generate writes report as timestamped JSON into dir (DefaultDir when
// empty) and returns the file path. An existing report is never replaced.
func Generate(dir string, report Report) (string, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", report.Timestamp.Format("20060102_150405"), report.Kind)
	filename := organizer.UniquePath(dir, name, nil)

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return filename, nil
}

// Load reads a report written by Generate
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// FormatBytes formats byte count to human-readable size
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(bytes))
}

// Prune removes report files in dir last modified before now minus maxAge
// and returns how many were deleted.
func Prune(dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read report directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ext := filepath.Ext(entry.Name()); ext != ".json" && ext != ".jsonl" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}
