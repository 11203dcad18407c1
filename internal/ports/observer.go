package ports

import (
	"time"

	"github.com/Goboolean/hts-connector/internal/domain"
)

// ProcessingObserver is notified about every line the follower consumes.
//
// Thread Safety: Implementations MUST be safe for concurrent calls, several
// followers may share one observer.
type ProcessingObserver interface {
	// ObserveLine records the classification result of one line.
	ObserveLine(kind domain.RecordKind)

	// ObservePoll records one end-of-file wait.
	ObservePoll()
}

// HandlerObserver is notified about every sink call.
type HandlerObserver interface {
	// ObserveHandle records the latency and outcome of one handler call.
	ObserveHandle(kind domain.RecordKind, elapsed time.Duration, err error)
}
