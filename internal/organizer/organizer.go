package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
	"go.uber.org/zap"

	"github.com/Nomadcxx/jellyname/internal/config"
	"github.com/Nomadcxx/jellyname/internal/detector"
	"github.com/Nomadcxx/jellyname/internal/logging"
	"github.com/Nomadcxx/jellyname/internal/naming"
	"github.com/Nomadcxx/jellyname/internal/session"
)

// Operation types recorded in journals
const (
	OpRename = "rename"
	OpMove   = "move"
)

// Operation is one planned file change. Source == Target means the file
// already has the right name and is left alone.
type Operation struct {
	Type   string                `json:"type"`
	Source string                `json:"source"`
	Target string                `json:"target"`
	Kind   config.MediaKind      `json:"kind"`
	Size   int64                 `json:"size"`
	Info   *detector.EpisodeInfo `json:"info,omitempty"`
}

// Noop reports whether applying op changes nothing
func (op Operation) Noop() bool {
	return op.Source == op.Target
}

// Organizer plans and applies renames for media files on disk.
type Organizer struct {
	detector   *detector.Detector
	media      config.MediaConfig
	logger     *zap.Logger
	journalDir string
}

// Option configures an Organizer
type Option func(*Organizer)

// WithLogger sets the logger used for per-file events
func WithLogger(logger *zap.Logger) Option {
	return func(o *Organizer) {
		o.logger = logger
	}
}

// WithJournalDir overrides where rename journals are written
func WithJournalDir(dir string) Option {
	return func(o *Organizer) {
		o.journalDir = dir
	}
}

// New returns an organizer using d for detection and media for classification.
func New(d *detector.Detector, media config.MediaConfig, opts ...Option) *Organizer {
	o := &Organizer{
		detector: d,
		media:    media,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.Component(o.logger, "organizer")
	return o
}

// Classify returns the media kind of name
func (o *Organizer) Classify(name string) config.MediaKind {
	return o.media.Classify(name)
}

// Claims tracks target paths already handed out during one batch.
type Claims map[string]struct{}

// UniquePath returns dir/name, or dir/stem_N.ext with the smallest N >= 1
// when that path exists on disk or was already claimed. The returned path
// is added to claims.
func UniquePath(dir, name string, claims Claims) string {
	candidate := filepath.Join(dir, name)
	for n := 1; taken(candidate, claims); n++ {
		candidate = filepath.Join(dir, naming.WithSuffix(name, n))
	}
	if claims != nil {
		claims[candidate] = struct{}{}
	}
	return candidate
}

func taken(path string, claims Claims) bool {
	if _, ok := claims[path]; ok {
		return true
	}
	_, err := os.Lstat(path)
	return err == nil
}

// Plan walks root and returns an in-place rename for every video and audio
// file. Subtitles are listed with their names unchanged. Files are visited
// in lexical order, so collision suffixes are deterministic.
func (o *Organizer) Plan(root string, settings session.Settings) ([]Operation, error) {
	return o.plan(root, "", settings)
}

// PlanInto is Plan with every media file moved flat into outDir.
func (o *Organizer) PlanInto(root, outDir string, settings session.Settings) ([]Operation, error) {
	if outDir == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	return o.plan(root, outDir, settings)
}

func (o *Organizer) plan(root, outDir string, settings session.Settings) ([]Operation, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	var sources []string
	err = godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				if osPathname != root && isHidden(de.Name()) {
					return godirwalk.SkipThis
				}
				return nil
			}
			if !de.IsRegular() || isHidden(de.Name()) {
				return nil
			}
			if o.media.Classify(de.Name()) == config.KindOther {
				return nil
			}
			sources = append(sources, osPathname)
			return nil
		},
		ErrorCallback: func(osPathname string, err error) godirwalk.ErrorAction {
			o.logger.Warn("skipping unreadable path", zap.String(logging.FieldFile, osPathname), zap.Error(err))
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	claims := Claims{}
	ops := make([]Operation, 0, len(sources))
	for _, src := range sources {
		ops = append(ops, o.planFile(src, outDir, settings, claims))
	}
	return ops, nil
}

func (o *Organizer) planFile(src, outDir string, settings session.Settings, claims Claims) Operation {
	name := filepath.Base(src)
	kind := o.media.Classify(name)

	op := Operation{Type: OpRename, Source: src, Kind: kind}
	if st, err := os.Stat(src); err == nil {
		op.Size = st.Size()
	}

	targetDir := filepath.Dir(src)
	if outDir != "" {
		targetDir = outDir
		op.Type = OpMove
	}

	newName := name
	if kind.Renamable() {
		info := o.detector.Detect(name)
		op.Info = &info
		newName = naming.GenerateFilename(info, templateOf(settings), settings.Channel)
	}

	if outDir == "" && newName == name {
		op.Target = src
		claims[src] = struct{}{}
		return op
	}

	op.Target = UniquePath(targetDir, newName, claims)
	return op
}

func templateOf(settings session.Settings) string {
	if settings.Template == "" {
		return naming.DefaultTemplate
	}
	return settings.Template
}

// isHidden matches dotfiles such as the inbox lock and staging directories
func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
