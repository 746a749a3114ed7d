package naming

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Nomadcxx/jellyname/internal/detector"
)

// Preview shows what a single file would be renamed to.
type Preview struct {
	Original string          `json:"original"`
	New      string          `json:"new"`
	Season   detector.Number `json:"season"`
	Episode  detector.Number `json:"episode"`
	Show     string          `json:"show"`
}

func previewOne(d *detector.Detector, filename, template, channel string) Preview {
	info := d.Detect(filename)
	return Preview{
		Original: filename,
		New:      GenerateFilename(info, template, channel),
		Season:   info.Season,
		Episode:  info.Episode,
		Show:     info.ShowName,
	}
}

// PreviewBatch detects and renders every filename in input order. Duplicate
// targets are reported as-is; collisions are the caller's concern.
func PreviewBatch(d *detector.Detector, filenames []string, template, channel string) []Preview {
	previews := make([]Preview, 0, len(filenames))
	for _, filename := range filenames {
		previews = append(previews, previewOne(d, filename, template, channel))
	}
	return previews
}

// PreviewBatchParallel is PreviewBatch spread over a bounded set of
// goroutines. Results keep input order. workers <= 0 means one per CPU.
func PreviewBatchParallel(ctx context.Context, d *detector.Detector, filenames []string, template, channel string, workers int) ([]Preview, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	previews := make([]Preview, len(filenames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, filename := range filenames {
		i, filename := i, filename
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			previews[i] = previewOne(d, filename, template, channel)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return previews, nil
}
