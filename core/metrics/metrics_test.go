package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agriroute/core/factory"
)

type recordSink struct {
	decisions int
	cache     int
}

func (r *recordSink) RecordDecision(DecisionEvent) error { r.decisions++; return nil }
func (r *recordSink) RecordCacheLookup(CacheEvent) error { r.cache++; return nil }

type decisionOnly struct{ n int }

func (d *decisionOnly) RecordDecision(DecisionEvent) error { d.n++; return nil }

type failing struct{}

func (failing) RecordDecision(DecisionEvent) error { return errors.New("boom") }

func TestMultiSinkForwards(t *testing.T) {
	s1 := &recordSink{}
	s2 := &decisionOnly{}
	m := NewMultiSink(s1, s2)
	require.NoError(t, m.RecordDecision(DecisionEvent{}))
	require.NoError(t, m.RecordCacheLookup(CacheEvent{Hit: true}))
	require.NoError(t, m.RecordSessionTurn(SessionEvent{}))
	assert.Equal(t, 1, s1.decisions)
	assert.Equal(t, 1, s1.cache)
	assert.Equal(t, 1, s2.n)
}

func TestMultiSinkReturnsFirstError(t *testing.T) {
	after := &decisionOnly{}
	m := NewMultiSink(failing{}, after)
	assert.Error(t, m.RecordDecision(DecisionEvent{}))
	assert.Equal(t, 0, after.n)
}

func TestNewMetricsSink(t *testing.T) {
	s, err := NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, s)

	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	m, ok := s.(*MultiSink)
	require.True(t, ok)
	assert.Len(t, m.Sinks, 2)

	_, err = NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.Error(t, err)
	assert.IsType(t, NopSink{}, OrNop(nil))
}
