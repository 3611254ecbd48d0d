package monitoring

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/adboard-be/internal/metrics"
	"github.com/isdelr/adboard-be/internal/storage"
)

type staticRefs map[string]bool

func (r staticRefs) ImageRefs(context.Context) (map[string]bool, error) { return r, nil }

type failingRefs struct{}

func (failingRefs) ImageRefs(context.Context) (map[string]bool, error) {
	return nil, errors.New("db down")
}

func saveAged(t *testing.T, images *storage.ImageStore, ns string, age time.Duration) string {
	t.Helper()
	name, err := images.Save(context.Background(), []byte("img"), ns, "x.png")
	require.NoError(t, err)
	old := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(filepath.Join(images.Root(), ns, name), old, old))
	return name
}

func TestImageJanitor_RemovesOnlyOldOrphans(t *testing.T) {
	images := storage.NewImageStore(t.TempDir())

	kept := saveAged(t, images, storage.NamespaceAds, 2*time.Hour)
	orphan := saveAged(t, images, storage.NamespaceAds, 2*time.Hour)
	fresh := saveAged(t, images, storage.NamespaceAds, time.Minute)
	avatar := saveAged(t, images, storage.NamespaceUsers, 2*time.Hour)

	j := NewImageJanitor(images, map[string]RefLister{
		storage.NamespaceAds:   staticRefs{kept: true},
		storage.NamespaceUsers: staticRefs{avatar: true},
	}, time.Hour)

	before := testutil.ToFloat64(metrics.OrphanedImagesRemovedTotal.WithLabelValues(storage.NamespaceAds))
	require.NoError(t, j.Run(context.Background()))

	_, err := images.Load(storage.NamespaceAds, orphan)
	assert.ErrorIs(t, err, storage.ErrImageNotFound)
	for _, name := range []string{kept, fresh} {
		_, err := images.Load(storage.NamespaceAds, name)
		assert.NoError(t, err, name)
	}
	_, err = images.Load(storage.NamespaceUsers, avatar)
	assert.NoError(t, err)

	after := testutil.ToFloat64(metrics.OrphanedImagesRemovedTotal.WithLabelValues(storage.NamespaceAds))
	assert.Equal(t, 1.0, after-before)
}

func TestImageJanitor_RefError(t *testing.T) {
	images := storage.NewImageStore(t.TempDir())
	orphan := saveAged(t, images, storage.NamespaceAds, 2*time.Hour)

	j := NewImageJanitor(images, map[string]RefLister{storage.NamespaceAds: failingRefs{}}, time.Hour)
	require.Error(t, j.Run(context.Background()))

	_, err := images.Load(storage.NamespaceAds, orphan)
	assert.NoError(t, err, "nothing is deleted when references are unknown")
}

type countingJob struct{ runs chan struct{} }

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) error {
	j.runs <- struct{}{}
	return nil
}

func TestScheduler(t *testing.T) {
	s := NewScheduler(time.Second)
	job := &countingJob{runs: make(chan struct{}, 10)}

	require.Error(t, s.Add("not a schedule", job))
	require.NoError(t, s.Add("@every 1s", job))

	s.Run()
	defer s.Stop()

	select {
	case <-job.runs:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestStatUpdater_PublishesImageGauges(t *testing.T) {
	root := t.TempDir()
	images := storage.NewImageStore(root)
	_, err := images.Save(context.Background(), []byte("12345"), storage.NamespaceAds, "a.png")
	require.NoError(t, err)
	_, err = images.Save(context.Background(), []byte("123"), storage.NamespaceAds, "b.png")
	require.NoError(t, err)

	su := NewStatUpdater(images, root, []string{storage.NamespaceAds, storage.NamespaceUsers}, time.Minute)
	su.update()

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.StoredImages.WithLabelValues(storage.NamespaceAds)))
	assert.Equal(t, 8.0, testutil.ToFloat64(metrics.StoredImageBytes.WithLabelValues(storage.NamespaceAds)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.StoredImages.WithLabelValues(storage.NamespaceUsers)))
	assert.Greater(t, testutil.ToFloat64(metrics.UploadsDiskFreeBytes), 0.0)
}
