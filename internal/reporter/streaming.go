package reporter

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Nomadcxx/jellyname/internal/organizer"
)

// Record is one line of a streamed report.
type Record struct {
	Time    time.Time                   `json:"time"`
	Type    string                      `json:"type"` // "archive", "rename" or "summary"
	Result  *organizer.ProcessingResult `json:"result,omitempty"`
	Journal *organizer.Journal          `json:"journal,omitempty"`
	Summary *StreamSummary              `json:"summary,omitempty"`
}

// StreamSummary is written as the last record by Finalize.
type StreamSummary struct {
	Archives int      `json:"archives"`
	Files    int      `json:"files"`
	Failures int      `json:"failures"`
	Bytes    int64    `json:"bytes"`
	Errors   []string `json:"errors,omitempty"`
}

// StreamingReporter appends results as JSON lines while a sweep runs, so a
// crashed sweep still leaves a partial report. Safe for concurrent use.
type StreamingReporter struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	summary StreamSummary
	closed  bool
}

// NewStreamingReporter creates <timestamp>_<kind>.jsonl in dir (DefaultDir when empty)
func NewStreamingReporter(dir, kind string) (*StreamingReporter, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.jsonl", time.Now().Format("20060102_150405"), kind)
	path := organizer.UniquePath(dir, name, nil)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	writer := bufio.NewWriter(file)
	return &StreamingReporter{
		file:    file,
		writer:  writer,
		encoder: json.NewEncoder(writer),
	}, nil
}

// WriteResult appends a processed archive
func (sr *StreamingReporter) WriteResult(ctx context.Context, result *organizer.ProcessingResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	sr.summary.Archives++
	sr.summary.Files += len(result.Files)
	sr.summary.Bytes += result.TotalSize
	if !result.Success {
		sr.summary.Failures++
	}
	return sr.write(Record{Time: time.Now(), Type: "archive", Result: result})
}

// WriteJournal appends the journal of a rename batch
func (sr *StreamingReporter) WriteJournal(ctx context.Context, j *organizer.Journal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	sr.summary.Files += j.Succeeded()
	sr.summary.Failures += j.Failed()
	return sr.write(Record{Time: time.Now(), Type: "rename", Journal: j})
}

// AddError records a failure that produced no result
func (sr *StreamingReporter) AddError(msg string) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.summary.Errors = append(sr.summary.Errors, msg)
}

func (sr *StreamingReporter) write(rec Record) error {
	if sr.closed {
		return errors.New("report already finalized")
	}
	if err := sr.encoder.Encode(rec); err != nil {
		return fmt.Errorf("failed to write report record: %w", err)
	}
	return sr.writer.Flush()
}

// Summary returns the totals accumulated so far
func (sr *StreamingReporter) Summary() StreamSummary {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	s := sr.summary
	s.Errors = append([]string(nil), sr.summary.Errors...)
	return s
}

// Finalize writes the summary record and closes the file
func (sr *StreamingReporter) Finalize() error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if sr.closed {
		return nil
	}

	summary := sr.summary
	werr := sr.write(Record{Time: time.Now(), Type: "summary", Summary: &summary})
	sr.closed = true
	if err := sr.file.Close(); err != nil {
		return errors.Join(werr, fmt.Errorf("failed to close report: %w", err))
	}
	return werr
}

// Path returns the report file location
func (sr *StreamingReporter) Path() string {
	return sr.file.Name()
}

// ReadRecords loads every record of a streamed report
func ReadRecords(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	defer file.Close()

	var records []Record
	dec := json.NewDecoder(file)
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return records, fmt.Errorf("failed to parse report: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}
