package ports

import "github.com/Goboolean/hts-connector/internal/domain"

// LineClassifier turns one raw line into a typed record.
type LineClassifier interface {
	// Classify decodes line as a candle or an indicator.
	//
	// Returns:
	//   - Record with Kind set on success
	//   - Record with KindUnknown and nil error when the line is skipped
	//   - Error only for conditions the caller must treat as fatal
	Classify(line string) (domain.Record, error)
}
