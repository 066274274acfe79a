package sensor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Marker records sensor read outcomes. status.Watchdog implements it.
type Marker interface {
	MarkSuccess(location string, t time.Time)
	MarkFailure(location string, t time.Time)
}

// ReadAll reads every sensor concurrently and merges the results into
// prev. A sensor that fails keeps its previous value. The returned map is
// new; prev is not modified. Outcomes are reported to marker, stamped
// with now() taken once all reads have finished.
func ReadAll(ctx context.Context, sensors []Sensor, prev map[string]Reading, marker Marker, now func() time.Time) map[string]Reading {
	type result struct {
		reading Reading
		ok      bool
	}
	results := make([]result, len(sensors))

	var g errgroup.Group
	for i, s := range sensors {
		g.Go(func() error {
			r, ok := s.Read(ctx)
			results[i] = result{reading: r, ok: ok}
			return nil
		})
	}
	_ = g.Wait()

	t := now()
	next := make(map[string]Reading, len(prev)+len(sensors))
	for k, v := range prev {
		next[k] = v
	}
	for i, s := range sensors {
		if results[i].ok {
			next[s.Location()] = results[i].reading
			if marker != nil {
				marker.MarkSuccess(s.Location(), t)
			}
			continue
		}
		if marker != nil {
			marker.MarkFailure(s.Location(), t)
		}
	}
	return next
}
