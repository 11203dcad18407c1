package output

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Goboolean/hts-connector/internal/domain"
)

type HealthStatus struct {
	Healthy   bool          `json:"healthy"`
	Status    string        `json:"status"`
	LinesRead int64         `json:"lines_read"`
	SinceLast time.Duration `json:"since_last_pass_ns"`
	Uptime    time.Duration `json:"uptime_ns"`
	Reason    string        `json:"reason,omitempty"`
}

// HealthChecker reports readiness of a follower: it must be running and
// have completed a read pass recently.
type HealthChecker struct {
	metrics   *domain.FollowMetrics
	staleness time.Duration
	now       func() time.Time
}

// NewHealthChecker treats a follower as stalled when no pass completed
// within three poll intervals.
func NewHealthChecker(metrics *domain.FollowMetrics, pollInterval time.Duration) *HealthChecker {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &HealthChecker{
		metrics:   metrics,
		staleness: 3 * pollInterval,
		now:       time.Now,
	}
}

func (h *HealthChecker) Check() HealthStatus {
	if h.metrics == nil || !h.metrics.IsRunning() {
		return HealthStatus{Status: "OFFLINE", Reason: "follower not running"}
	}

	snap := h.metrics.GetSnapshot()
	status := HealthStatus{
		LinesRead: snap.LinesRead,
		Uptime:    snap.Uptime,
	}

	if snap.LastPass.IsZero() {
		status.Status = "STARTING"
		status.Reason = "no read pass completed yet"
		return status
	}

	status.SinceLast = h.now().Sub(snap.LastPass)
	if status.SinceLast > h.staleness {
		status.Status = "STALLED"
		status.Reason = "last read pass older than " + h.staleness.String()
		return status
	}

	status.Healthy = true
	status.Status = "HEALTHY"
	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check()

	w.Header().Set("Content-Type", "application/json")
	if status.Healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
