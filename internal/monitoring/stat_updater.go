package monitoring

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/isdelr/adboard-be/internal/metrics"
)

// StatUpdater periodically samples host resources backing the service and
// publishes them as gauges.
type StatUpdater struct {
	images     ImageLister
	uploadsDir string
	namespaces []string
	interval   time.Duration
	done       chan struct{}
}

// NewStatUpdater creates a StatUpdater for the image store rooted at uploadsDir.
func NewStatUpdater(images ImageLister, uploadsDir string, namespaces []string, interval time.Duration) *StatUpdater {
	return &StatUpdater{
		images:     images,
		uploadsDir: uploadsDir,
		namespaces: namespaces,
		interval:   interval,
		done:       make(chan struct{}),
	}
}

// Run starts the periodic updates. It blocks until Stop is called.
func (su *StatUpdater) Run() {
	log.Info().Dur("interval", su.interval).Msg("Starting background stat updater...")
	ticker := time.NewTicker(su.interval)
	defer ticker.Stop()

	// Run once immediately on start
	su.update()

	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater.")
			return
		case <-ticker.C:
			su.update()
		}
	}
}

// Stop halts the periodic updates.
func (su *StatUpdater) Stop() {
	close(su.done)
}

func (su *StatUpdater) update() {
	if usage, err := disk.Usage(su.uploadsDir); err != nil {
		log.Warn().Err(err).Str("path", su.uploadsDir).Msg("StatUpdater: Could not read disk usage")
	} else {
		metrics.UploadsDiskFreeBytes.Set(float64(usage.Free))
		metrics.UploadsDiskUsedPercent.Set(usage.UsedPercent)
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		log.Warn().Err(err).Msg("StatUpdater: Could not read memory usage")
	} else {
		metrics.HostMemoryUsedPercent.Set(vm.UsedPercent)
	}

	for _, ns := range su.namespaces {
		files, err := su.images.List(ns)
		if err != nil {
			log.Warn().Err(err).Str("namespace", ns).Msg("StatUpdater: Could not list images")
			continue
		}
		var total int64
		for _, f := range files {
			total += f.Size
		}
		metrics.StoredImages.WithLabelValues(ns).Set(float64(len(files)))
		metrics.StoredImageBytes.WithLabelValues(ns).Set(float64(total))
	}
}
