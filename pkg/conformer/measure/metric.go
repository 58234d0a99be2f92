package measure

import (
	"sync"
	"time"
)

type DefaultMetric struct {
	mu       sync.Mutex
	elapsed  time.Duration
	total    time.Duration
	items    int64
	failed   int64
	produced int64
	workers  int
}

func (mt *DefaultMetric) AddItem(elapsed time.Duration, produced int, failed bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.items++
	mt.elapsed += elapsed
	mt.produced += int64(produced)
	if failed {
		mt.failed++
	}
}

// AVGDuration is the mean generator time of one work item.
func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.items == 0 {
		return 0
	}

	return round(time.Duration(float64(mt.elapsed) / float64(mt.items)))
}

func (mt *DefaultMetric) Items() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.items
}

func (mt *DefaultMetric) Failed() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.failed
}

func (mt *DefaultMetric) Produced() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.produced
}

// Workers is the number of workers the stage ran with.
func (mt *DefaultMetric) Workers() int {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.workers
}

func (mt *DefaultMetric) SetTotalDuration(total time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.total = total
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return round(mt.total)
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		return d.Round(time.Minute)
	case d > time.Second:
		return d.Round(time.Millisecond)
	case d > time.Millisecond:
		return d.Round(time.Microsecond)
	default:
		return d
	}
}
