package ecs

import "time"

// System is a game logic processor run once per World.Update.
type System interface {
	Name() string
	Update(w *World, dt float64)
}

// SystemFunc adapts a function to System.
type SystemFunc struct {
	ID string
	Fn func(w *World, dt float64)
}

func (s SystemFunc) Name() string                { return s.ID }
func (s SystemFunc) Update(w *World, dt float64) { s.Fn(w, dt) }

// Metrics provides runtime metrics for a system.
type Metrics struct {
	Name                 string
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	MinExecutionTime     time.Duration
	LastExecutionTime    time.Duration
}

func (m *Metrics) record(d time.Duration) {
	m.ExecutionCount++
	m.TotalExecutionTime += d
	m.LastExecutionTime = d
	if m.ExecutionCount == 1 || d < m.MinExecutionTime {
		m.MinExecutionTime = d
	}
	if d > m.MaxExecutionTime {
		m.MaxExecutionTime = d
	}
	m.AverageExecutionTime = m.TotalExecutionTime / time.Duration(m.ExecutionCount)
}
