package charshadow

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Frame phase scopes timed by ShadowSystem.Update.
const (
	ScopeRank  = "Rank Lights"
	ScopeRig   = "Update Rig"
	ScopePlan  = "Plan Atlas"
	ScopeDraw  = "Submit Slices"
	ScopeTotal = "Shadow Update"
)

type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string

	now func() time.Time
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		Order:      make([]string, 0),
		now:        time.Now,
	}
}

func (p *Profiler) BeginScope(name string) {
	if p == nil {
		return
	}
	p.StartTimes[name] = p.now()
	// Keep first-seen order for display
	for _, n := range p.Order {
		if n == name {
			return
		}
	}
	p.Order = append(p.Order, name)
}

func (p *Profiler) EndScope(name string) {
	if p == nil {
		return
	}
	if start, ok := p.StartTimes[name]; ok {
		p.Scopes[name] = p.now().Sub(start)
	}
}

func (p *Profiler) SetCount(name string, count int) {
	if p == nil {
		return
	}
	p.Counts[name] = count
}

func (p *Profiler) Reset() {
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf("  %-15s: %.2f ms\n", name, ms))
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %-15s: %d\n", k, p.Counts[k]))
	}

	return sb.String()
}
