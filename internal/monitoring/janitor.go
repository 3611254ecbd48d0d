package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/adboard-be/internal/metrics"
	"github.com/isdelr/adboard-be/internal/storage"
)

// RefLister reports which stored filenames are still referenced.
type RefLister interface {
	ImageRefs(ctx context.Context) (map[string]bool, error)
}

// ImageLister lists and deletes stored images.
type ImageLister interface {
	List(namespace string) ([]storage.StoredImage, error)
	Delete(namespace, filename string) error
}

// ImageJanitor removes image files that no row references any more. Such
// files are left behind when a best-effort delete fails. Files younger than
// the grace period are kept since their row may not be committed yet.
type ImageJanitor struct {
	images ImageLister
	refs   map[string]RefLister
	grace  time.Duration
	now    func() time.Time
}

// NewImageJanitor creates a janitor sweeping the namespaces in refs.
func NewImageJanitor(images ImageLister, refs map[string]RefLister, grace time.Duration) *ImageJanitor {
	return &ImageJanitor{images: images, refs: refs, grace: grace, now: time.Now}
}

func (j *ImageJanitor) Name() string { return "image-janitor" }

// Run sweeps every namespace once.
func (j *ImageJanitor) Run(ctx context.Context) error {
	for namespace, lister := range j.refs {
		removed, err := j.sweep(ctx, namespace, lister)
		if err != nil {
			return fmt.Errorf("sweeping %s: %w", namespace, err)
		}
		if removed > 0 {
			log.Info().Str("namespace", namespace).Int("removed", removed).Msg("Removed orphaned images")
		}
	}
	return nil
}

func (j *ImageJanitor) sweep(ctx context.Context, namespace string, lister RefLister) (int, error) {
	refs, err := lister.ImageRefs(ctx)
	if err != nil {
		return 0, err
	}
	files, err := j.images.List(namespace)
	if err != nil {
		return 0, err
	}

	cutoff := j.now().Add(-j.grace)
	removed := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if refs[f.Filename] || f.ModTime.After(cutoff) {
			continue
		}
		if err := j.images.Delete(namespace, f.Filename); err != nil {
			metrics.ImageCleanupFailuresTotal.WithLabelValues(namespace).Inc()
			log.Warn().Err(err).Str("namespace", namespace).Str("filename", f.Filename).Msg("Failed to delete orphaned image")
			continue
		}
		removed++
	}
	metrics.OrphanedImagesRemovedTotal.WithLabelValues(namespace).Add(float64(removed))
	return removed, nil
}
