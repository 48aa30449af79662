package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	Path    string
	Timeout time.Duration
}

type sinkConf struct {
	Path    string        `json:"path"`
	Timeout time.Duration `json:"timeout"`
	Retries int           `json:"retries"`
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sink]()
	require.NoError(t, reg.Register("jsonl", func(conf map[string]any) (*sink, error) {
		var c sinkConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sink{Path: c.Path, Timeout: c.Timeout}, nil
	}))
	inst, err := reg.Create(ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": "b.jsonl", "timeout": "2s"}})
	require.NoError(t, err)
	assert.Equal(t, "b.jsonl", inst.Path)
	assert.Equal(t, 2*time.Second, inst.Timeout)

	// nil conf is handed over as an empty map
	inst, err = reg.Create(ModuleConfig{Type: "jsonl"})
	require.NoError(t, err)
	assert.Empty(t, inst.Path)
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	require.NoError(t, reg.Register("x", func(map[string]any) (int, error) { return 1, nil }))
	assert.Error(t, reg.Register("x", func(map[string]any) (int, error) { return 2, nil }))
	assert.Error(t, reg.Register("y", nil))
	_, err := reg.Create(ModuleConfig{Type: "y"})
	assert.ErrorContains(t, err, "unknown module type")
}

func TestRegistry_CreateAll(t *testing.T) {
	reg := NewRegistry[string]()
	require.NoError(t, reg.Register("a", func(map[string]any) (string, error) { return "A", nil }))
	require.NoError(t, reg.Register("b", func(map[string]any) (string, error) { return "B", nil }))
	out, err := reg.CreateAll([]ModuleConfig{{Type: "b"}, {Type: "a"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, out)
	assert.Equal(t, []string{"a", "b"}, reg.Names())

	_, err = reg.CreateAll([]ModuleConfig{{Type: "a"}, {Type: "zzz"}})
	assert.Error(t, err)
}

func TestDecodeWeakTypes(t *testing.T) {
	var c sinkConf
	require.NoError(t, Decode(map[string]any{"retries": "3"}, &c))
	assert.Equal(t, 3, c.Retries)
	assert.Equal(t, 5*time.Second, Seconds(0, 5*time.Second))
	assert.Equal(t, 2*time.Second, Seconds(2, 5*time.Second))
}
