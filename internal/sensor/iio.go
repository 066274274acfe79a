package sensor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Attribute files exposed by the kernel dht11 IIO driver, in milli-units.
const (
	tempFile     = "in_temp_input"
	humidityFile = "in_humidityrelative_input"
)

// Defaults for IIO retries. DHT sensors fail often; the kernel driver
// needs about two seconds between reads.
const (
	DefaultAttempts   = 5
	DefaultRetryDelay = 2 * time.Second
)

// IIO reads a DHT11/DHT22 through the Linux industrial I/O subsystem,
// e.g. /sys/bus/iio/devices/iio:device0.
type IIO struct {
	location string
	dir      string
	fs       afero.Fs
	attempts int
	delay    time.Duration
	logger   *zap.SugaredLogger
}

// IIOOption configures an IIO sensor.
type IIOOption func(*IIO)

// WithFs reads device files from fs instead of the OS filesystem.
func WithFs(fs afero.Fs) IIOOption {
	return func(s *IIO) { s.fs = fs }
}

// WithRetry sets how many times a read is attempted and the pause between
// attempts.
func WithRetry(attempts int, delay time.Duration) IIOOption {
	return func(s *IIO) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if delay >= 0 {
			s.delay = delay
		}
	}
}

// WithLogger sets the logger used for failed reads.
func WithLogger(l *zap.SugaredLogger) IIOOption {
	return func(s *IIO) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewIIO creates a sensor for the IIO device directory dir.
func NewIIO(location, dir string, opts ...IIOOption) *IIO {
	s := &IIO{
		location: location,
		dir:      dir,
		fs:       afero.NewOsFs(),
		attempts: DefaultAttempts,
		delay:    DefaultRetryDelay,
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("sensor", location)
	return s
}

// Location returns the sensor location.
func (s *IIO) Location() string { return s.location }

// Read samples the sensor, retrying failed attempts until ctx is done.
func (s *IIO) Read(ctx context.Context) (Reading, bool) {
	var lastErr error
	for i := 0; i < s.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				s.logger.Warnw("read cancelled", "err", ctx.Err())
				return Reading{}, false
			case <-time.After(s.delay):
			}
		}
		r, err := s.readOnce()
		if err == nil {
			return r, true
		}
		lastErr = err
		s.logger.Debugw("read attempt failed", "attempt", i+1, "err", err)
	}
	s.logger.Warnw("could not read sensor", "attempts", s.attempts, "err", lastErr)
	return Reading{}, false
}

func (s *IIO) readOnce() (Reading, error) {
	temp, err := s.readMilli(tempFile)
	if err != nil {
		return Reading{}, err
	}
	hum, err := s.readMilli(humidityFile)
	if err != nil {
		return Reading{}, err
	}
	// A DHT that answers with all zeroes has not actually sampled.
	if temp == 0 && hum == 0 {
		return Reading{}, errors.New("empty sample")
	}
	return Reading{Temperature: temp, Humidity: hum}, nil
}

func (s *IIO) readMilli(name string) (float64, error) {
	path := filepath.Join(s.dir, name)
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return float64(v) / 1000, nil
}
