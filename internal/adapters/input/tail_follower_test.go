package input

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goboolean/hts-connector/internal/domain"
)

func TestNewTailFollowerMissingFile(t *testing.T) {
	_, err := NewTailFollower(FollowerConfig{Path: filepath.Join(t.TempDir(), "nope")}, NewClassifier(ClassifierConfig{}), &recordingHandler{})

	stage, ok := domain.StageOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.StageOpen, stage)
}

func TestTailFollowerReadsAndFollows(t *testing.T) {
	path := newTestFile(t, candleLine1, "junk", indicatorLine1)
	handler := &recordingHandler{}

	f, err := NewTailFollower(FollowerConfig{Path: path}, NewClassifier(ClassifierConfig{}), handler)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- f.Follow(context.Background(), 1500*time.Millisecond) }()

	time.Sleep(300 * time.Millisecond)
	writeLines(t, path, candleLine2)

	require.NoError(t, <-done)
	assert.Equal(t, []domain.Record{
		domain.CandleRecord(candle1),
		domain.IndicatorRecord(indicator1),
		domain.CandleRecord(candle2),
	}, handler.Records())
	assert.Equal(t, int64(1), f.Metrics().GetSnapshot().Skipped)
}

func TestTailFollowerHandlerErrorIsFatal(t *testing.T) {
	path := newTestFile(t, candleLine1, candleLine2)
	sinkErr := errors.New("write rejected")
	handler := &recordingHandler{failOn: 1, failErr: sinkErr}

	f, err := NewTailFollower(FollowerConfig{Path: path}, NewClassifier(ClassifierConfig{}), handler)
	require.NoError(t, err)

	err = f.Follow(context.Background(), 5*time.Second)

	assert.ErrorIs(t, err, sinkErr)
	stage, _ := domain.StageOf(err)
	assert.Equal(t, domain.StageDispatch, stage)
	assert.Empty(t, handler.Records())
}

func TestTailFollowerContextCancel(t *testing.T) {
	path := newTestFile(t)

	f, err := NewTailFollower(FollowerConfig{Path: path}, NewClassifier(ClassifierConfig{}), &recordingHandler{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, f.Follow(ctx, time.Hour), context.DeadlineExceeded)
}
