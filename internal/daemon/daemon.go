package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/karrick/godirwalk"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Nomadcxx/jellyname/internal/config"
	"github.com/Nomadcxx/jellyname/internal/logging"
	"github.com/Nomadcxx/jellyname/internal/organizer"
	"github.com/Nomadcxx/jellyname/internal/reporter"
	"github.com/Nomadcxx/jellyname/internal/session"
)

// LockName is the lock file created in the inbox while a sweep runs.
const LockName = ".jellyname.lock"

// Suffixes given to archives after a sweep. Neither ends in .zip, so an
// archive is never picked up twice.
const (
	DoneSuffix   = ".done"
	FailedSuffix = ".failed"
)

// ReportRetention is how long sweep reports are kept.
const ReportRetention = 30 * 24 * time.Hour

// ErrBusy is returned when another sweeper holds the inbox lock.
var ErrBusy = errors.New("inbox is locked by another sweep")

// Daemon sweeps an inbox directory: zip archives are extracted and renamed
// into the output directory, loose media files are renamed into it.
type Daemon struct {
	cfg       *config.Config
	logger    *zap.Logger
	organizer *organizer.Organizer
	settings  session.Settings
	reportDir string
}

// Option configures a Daemon
type Option func(*daemonOptions)

type daemonOptions struct {
	reportDir  string
	journalDir string
}

// WithReportDir overrides where sweep reports are written
func WithReportDir(dir string) Option {
	return func(o *daemonOptions) {
		o.reportDir = dir
	}
}

// WithJournalDir overrides where rename journals are written
func WithJournalDir(dir string) Option {
	return func(o *daemonOptions) {
		o.journalDir = dir
	}
}

// New creates a daemon for cfg. The config must name an inbox and output.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires a configuration")
	}
	if strings.TrimSpace(cfg.Daemon.Inbox) == "" || strings.TrimSpace(cfg.Daemon.Output) == "" {
		return nil, errors.New("daemon inbox and output must be configured")
	}
	if within(cfg.Daemon.Output, cfg.Daemon.Inbox) {
		return nil, fmt.Errorf("daemon output %s must not be inside the inbox", cfg.Daemon.Output)
	}

	var o daemonOptions
	for _, opt := range opts {
		opt(&o)
	}

	det, err := cfg.Detector()
	if err != nil {
		return nil, err
	}

	logger = logging.Component(logger, "daemon")
	orgOpts := []organizer.Option{organizer.WithLogger(logger)}
	if o.journalDir != "" {
		orgOpts = append(orgOpts, organizer.WithJournalDir(o.journalDir))
	}

	return &Daemon{
		cfg:       cfg,
		logger:    logger,
		organizer: organizer.New(det, cfg.Media, orgOpts...),
		settings: session.Settings{
			Template: cfg.Rename.Template,
			Channel:  cfg.Rename.Channel,
		},
		reportDir: o.reportDir,
	}, nil
}

// SweepResult summarizes one pass over the inbox.
type SweepResult struct {
	Archives int
	Failed   int
	Files    int
	Report   string
}

// Sweep processes everything currently in the inbox once. It returns
// ErrBusy without touching anything when another sweep holds the lock.
func (d *Daemon) Sweep(ctx context.Context) (*SweepResult, error) {
	inbox := d.cfg.Daemon.Inbox
	output := d.cfg.Daemon.Output

	if err := organizer.ValidateDir(inbox, "sweep", true); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(output, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	lock := flock.New(filepath.Join(inbox, LockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire inbox lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			d.logger.Warn("failed to release inbox lock", zap.Error(err))
		}
	}()

	archives, err := d.archives(inbox)
	if err != nil {
		return nil, err
	}

	sr, err := reporter.NewStreamingReporter(d.reportDir, reporter.KindSweep)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	d.logger.Info("sweep started",
		zap.String("inbox", inbox),
		zap.Int("archives", len(archives)))

	sweepErr := d.sweep(ctx, archives, sr)

	if err := sr.Finalize(); err != nil {
		d.logger.Warn("failed to finalize sweep report", zap.Error(err))
	}

	summary := sr.Summary()
	result := &SweepResult{
		Archives: summary.Archives,
		Failed:   summary.Failures,
		Files:    summary.Files,
		Report:   sr.Path(),
	}

	d.logger.Info("sweep finished",
		zap.Int("archives", result.Archives),
		zap.Int("files", result.Files),
		zap.Int("failed", result.Failed),
		zap.String("report", result.Report),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))

	if sweepErr != nil {
		return result, sweepErr
	}

	if n, err := reporter.Prune(filepath.Dir(sr.Path()), ReportRetention); err != nil {
		d.logger.Warn("failed to prune reports", zap.Error(err))
	} else if n > 0 {
		d.logger.Info("pruned old reports", zap.Int("deleted", n))
	}
	return result, nil
}

func (d *Daemon) sweep(ctx context.Context, archives []string, sr *reporter.StreamingReporter) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(d.cfg.Daemon.Workers, 1))

	for _, path := range archives {
		path := path
		g.Go(func() error {
			return d.processArchive(gctx, path, sr)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return d.renameLoose(ctx, sr)
}

func (d *Daemon) processArchive(ctx context.Context, path string, sr *reporter.StreamingReporter) error {
	log := d.logger.With(zap.String(logging.FieldArchive, filepath.Base(path)))

	result, err := d.organizer.ProcessArchive(ctx, path, d.cfg.Daemon.Output, d.settings, true)
	if err != nil {
		return err
	}
	if err := sr.WriteResult(ctx, result); err != nil {
		return err
	}

	suffix := DoneSuffix
	if !result.Success {
		suffix = FailedSuffix
		log.Warn("archive failed", zap.Strings("errors", result.Errors))
	}

	if result.Success && !d.cfg.Daemon.KeepArchives {
		if err := os.Remove(path); err != nil {
			log.Warn("failed to remove processed archive", zap.Error(err))
			sr.AddError(fmt.Sprintf("remove %s: %v", path, err))
		}
		return nil
	}

	dir, name := filepath.Split(path)
	target := organizer.UniquePath(dir, name+suffix, nil)
	if err := os.Rename(path, target); err != nil {
		log.Warn("failed to mark archive", zap.Error(err))
		sr.AddError(fmt.Sprintf("rename %s: %v", path, err))
	}
	return nil
}

func (d *Daemon) renameLoose(ctx context.Context, sr *reporter.StreamingReporter) error {
	ops, err := d.organizer.PlanInto(d.cfg.Daemon.Inbox, d.cfg.Daemon.Output, d.settings)
	if err != nil {
		sr.AddError(err.Error())
		d.logger.Warn("failed to plan loose files", zap.Error(err))
		return nil
	}
	if len(ops) == 0 {
		return nil
	}

	journal, err := d.organizer.Apply(ctx, ops, false)
	if journal != nil {
		if werr := sr.WriteJournal(context.WithoutCancel(ctx), journal); werr != nil {
			d.logger.Warn("failed to record journal", zap.Error(werr))
		}
		if n := organizer.RemoveEmptyDirs(d.cfg.Daemon.Inbox, journal); n > 0 {
			d.logger.Debug("removed empty inbox directories", zap.Int("count", n))
		}
	}
	return err
}

// archives returns the zip files directly inside inbox, sorted by name
func (d *Daemon) archives(inbox string) ([]string, error) {
	dirents, err := godirwalk.ReadDirents(inbox, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}
	sort.Sort(dirents)

	var archives []string
	for _, de := range dirents {
		name := de.Name()
		if !de.IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ".zip") {
			archives = append(archives, filepath.Join(inbox, name))
		}
	}
	return archives, nil
}

// Run sweeps once immediately and then on every tick of the configured
// schedule until ctx is cancelled. A cron schedule takes precedence over
// the interval.
func (d *Daemon) Run(ctx context.Context) error {
	trigger := make(chan struct{}, 1)
	fire := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	if schedule := d.cfg.Daemon.Schedule; schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(schedule, fire); err != nil {
			return fmt.Errorf("invalid daemon schedule %q: %w", schedule, err)
		}
		c.Start()
		defer c.Stop()
		d.logger.Info("daemon scheduled", zap.String("schedule", schedule))
	} else {
		interval, err := d.cfg.Daemon.IntervalDuration()
		if err != nil {
			return err
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					fire()
				}
			}
		}()
		d.logger.Info("daemon scheduled", zap.Duration("interval", interval))
	}

	fire()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			if _, err := d.Sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if errors.Is(err, ErrBusy) {
					d.logger.Info("sweep skipped, inbox busy")
					continue
				}
				d.logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}

// within reports whether path is dir or below it
func within(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
