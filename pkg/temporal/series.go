package temporal

import (
	"sort"
	"time"

	"github.com/orneryd/graphscout/pkg/config"
	"github.com/orneryd/graphscout/pkg/model"
)

// Series is a fixed-frequency sampling of one entity's event stream.
// Values outside the entity's observed range are zero regardless of the
// gap-fill policy; gap fill only applies between observations.
type Series struct {
	EntityID string
	// Start is the timestamp of bucket 0.
	Start  time.Time
	Bucket time.Duration
	Values []float64
	// Observed marks buckets that contained at least one raw event.
	Observed []bool
	// EventCount is the raw event count that fed the series.
	EventCount int
}

// Len returns the number of buckets.
func (s *Series) Len() int { return len(s.Values) }

// buildSeries converts sorted events into a series spanning [start, end)
// with the configured bucket size, aggregation, and gap-fill policy.
// Events outside the span are ignored.
func buildSeries(entityID string, events []model.Event, cfg config.TemporalConfig, start, end time.Time) Series {
	n := int(end.Sub(start) / cfg.BucketSize)
	if n < 1 {
		n = 1
	}
	s := Series{
		EntityID: entityID,
		Start:    start,
		Bucket:   cfg.BucketSize,
		Values:   make([]float64, n),
		Observed: make([]bool, n),
	}

	counts := make([]int, n)
	for _, ev := range events {
		if ev.Timestamp.Before(start) || !ev.Timestamp.Before(end) {
			continue
		}
		idx := int(ev.Timestamp.Sub(start) / cfg.BucketSize)
		if idx < 0 || idx >= n {
			continue
		}
		v := ev.Value
		if !ev.HasValue {
			v = 1 // count semantics for value-less events
		}
		switch cfg.Aggregation {
		case config.AggregateCount:
			s.Values[idx]++
		default: // sum and mean accumulate; mean divides below
			s.Values[idx] += v
		}
		counts[idx]++
		s.Observed[idx] = true
		s.EventCount++
	}

	if cfg.Aggregation == config.AggregateMean {
		for i := range s.Values {
			if counts[i] > 1 {
				s.Values[i] /= float64(counts[i])
			}
		}
	}

	fillGaps(&s, cfg.GapFill)
	return s
}

// fillGaps fills unobserved buckets between the first and last observation
// according to policy. Leading and trailing buckets stay at zero.
func fillGaps(s *Series, policy config.GapFillPolicy) {
	if policy == config.FillZero {
		return
	}
	first, last := -1, -1
	for i, ok := range s.Observed {
		if ok {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return
	}

	switch policy {
	case config.FillForward:
		prev := s.Values[first]
		for i := first + 1; i < last; i++ {
			if s.Observed[i] {
				prev = s.Values[i]
				continue
			}
			s.Values[i] = prev
		}
	case config.FillInterpolate:
		i := first
		for i < last {
			if s.Observed[i] {
				i++
				continue
			}
			// i is the start of a gap; find the next observed bucket.
			j := i
			for !s.Observed[j] {
				j++
			}
			lo, hi := s.Values[i-1], s.Values[j]
			span := float64(j - (i - 1))
			for k := i; k < j; k++ {
				frac := float64(k-(i-1)) / span
				s.Values[k] = lo + (hi-lo)*frac
			}
			i = j
		}
	}
}

// groupEvents partitions events by entity id and sorts each group by
// timestamp.
func groupEvents(events []model.Event) map[string][]model.Event {
	grouped := make(map[string][]model.Event)
	for _, ev := range events {
		grouped[ev.EntityID] = append(grouped[ev.EntityID], ev)
	}
	for id := range grouped {
		evs := grouped[id]
		sort.Slice(evs, func(i, j int) bool { return evs[i].Timestamp.Before(evs[j].Timestamp) })
	}
	return grouped
}

// observedRange returns the first and last event timestamps of a sorted
// event slice.
func observedRange(events []model.Event) (time.Time, time.Time) {
	return events[0].Timestamp, events[len(events)-1].Timestamp
}
