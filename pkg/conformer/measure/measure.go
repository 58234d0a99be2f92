package measure

import "sync"

type DefaultMeasure struct {
	mu     sync.Mutex
	stages map[string]Metric
}

func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		stages: make(map[string]Metric),
	}
}

func (m *DefaultMeasure) AddMetric(name string, workers int) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt := &DefaultMetric{workers: max(workers, 1)}
	m.stages[name] = mt

	return mt
}

// Metric returns the metric of the stage, or nil.
func (m *DefaultMeasure) Metric(name string) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stages[name]
}

func (m *DefaultMeasure) AllMetrics() map[string]Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make(map[string]Metric, len(m.stages))
	for name, mt := range m.stages {
		res[name] = mt
	}

	return res
}

var _ Measure = (*DefaultMeasure)(nil)
