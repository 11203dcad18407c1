package output

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goboolean/hts-connector/internal/domain"
	"github.com/Goboolean/hts-connector/internal/ports/mocks"
)

func TestMultiHandler_DeliversInOrder(t *testing.T) {
	log := &callLog{}
	a := &fakeSink{name: "a", log: log}
	b := &fakeSink{name: "b", log: log}
	m := NewMultiHandler(NamedHandler{"a", a}, NamedHandler{"b", b})

	ctx := context.Background()
	require.NoError(t, m.HandleCandle(ctx, testCandle))
	require.NoError(t, m.HandleIndicator(ctx, testIndicator))

	assert.Equal(t, []call{
		{"a", domain.KindCandle},
		{"b", domain.KindCandle},
		{"a", domain.KindIndicator},
		{"b", domain.KindIndicator},
	}, log.calls)
	assert.Equal(t, []string{"a", "b"}, m.Names())
	assert.Equal(t, 2, m.Len())
}

func TestMultiHandler_FirstErrorStops(t *testing.T) {
	log := &callLog{}
	a := &fakeSink{name: "a", log: log, err: errSinkDown}
	b := &fakeSink{name: "b", log: log}
	m := NewMultiHandler(NamedHandler{"a", a}, NamedHandler{"b", b})

	err := m.HandleCandle(context.Background(), testCandle)
	require.Error(t, err)
	assert.ErrorIs(t, err, errSinkDown)
	assert.Contains(t, err.Error(), "a:")
	assert.Equal(t, []call{{"a", domain.KindCandle}}, log.calls)
}

func TestMultiHandler_WithMock(t *testing.T) {
	h := mocks.NewRecordHandler(t)
	h.On("HandleIndicator", context.Background(), testIndicator).Return(nil).Once()

	m := NewMultiHandler(NamedHandler{"mock", h})
	assert.NoError(t, m.HandleIndicator(context.Background(), testIndicator))
}

func TestMultiHandler_CloseReverseOrderJoinsErrors(t *testing.T) {
	var order []string
	a := &fakeSink{name: "a", log: &callLog{}, closeFn: func() error {
		order = append(order, "a")
		return errors.New("a failed")
	}}
	b := &fakeSink{name: "b", log: &callLog{}, closeFn: func() error {
		order = append(order, "b")
		return nil
	}}
	m := NewMultiHandler(NamedHandler{"a", a}, NamedHandler{"b", b})

	err := m.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a failed")
	assert.Equal(t, []string{"b", "a"}, order)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
