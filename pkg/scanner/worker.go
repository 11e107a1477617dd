package scanner

import (
	"go.uber.org/zap"

	"github.com/nxneeraj/hx-warden/pkg/intercept"
)

// job is one qualifying response waiting to be scanned.
type job struct {
	exchange intercept.Exchange
	kind     scanKind
}

// worker scans jobs until the channel is closed. Queued jobs are always
// drained; a scan is never abandoned half way.
func worker(id int, jobs <-chan job, scan func(job), log *zap.Logger) {
	log.Debug("Worker started", zap.Int("worker", id))
	for j := range jobs {
		log.Debug("Processing", zap.Int("worker", id), zap.String("url", j.exchange.URL))
		scan(j)
	}
	log.Debug("Worker finished", zap.Int("worker", id))
}
