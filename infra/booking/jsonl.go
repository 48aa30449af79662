package booking

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	corebooking "github.com/kilianp07/agriroute/core/booking"
)

// JSONLConfig configures the rotating ledger. Sizes are in megabytes.
type JSONLConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// SetDefaults fills missing values.
func (c *JSONLConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "data/bookings.jsonl"
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 30
	}
}

// Query filters ledger entries. Zero fields match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	VehicleID string
	Product   string
	Channel   string
}

func (q Query) match(b corebooking.Booking) bool {
	if !q.Start.IsZero() && b.CreatedAt.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && b.CreatedAt.After(q.End) {
		return false
	}
	if q.VehicleID != "" && b.VehicleID != q.VehicleID {
		return false
	}
	if q.Product != "" && b.Product != q.Product {
		return false
	}
	if q.Channel != "" && b.Channel != q.Channel {
		return false
	}
	return true
}

// JSONLSink appends bookings to a JSONL file with size based rotation.
type JSONLSink struct {
	mu   sync.Mutex
	w    *lumberjack.Logger
	path string
}

// NewJSONLSink opens the ledger, creating its directory.
func NewJSONLSink(cfg JSONLConfig) (*JSONLSink, error) {
	cfg.SetDefaults()
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return &JSONLSink{w: lj, path: cfg.Path}, nil
}

// Handoff writes b as one line.
func (s *JSONLSink) Handoff(_ context.Context, b corebooking.Booking) error {
	line, err := json.Marshal(b)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(append(line, '\n'))
	return err
}

// Query reads the ledger including rotated files, oldest first.
func (s *JSONLSink) Query(_ context.Context, q Query) ([]corebooking.Booking, error) {
	base := filepath.Base(s.path)
	ext := filepath.Ext(base)
	pattern := filepath.Join(filepath.Dir(s.path), base[:len(base)-len(ext)]+"*")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []corebooking.Booking
	for _, f := range files {
		file, err := os.Open(f)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		sc := bufio.NewScanner(file)
		for sc.Scan() {
			var b corebooking.Booking
			if err := json.Unmarshal(sc.Bytes(), &b); err != nil {
				continue
			}
			if q.match(b) {
				res = append(res, b)
			}
		}
		_ = file.Close()
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

// Close closes the underlying writer.
func (s *JSONLSink) Close() error {
	return s.w.Close()
}
