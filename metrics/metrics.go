// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package metrics contains helpers for timing and counting the phases of
// model loading: parsing, compiling and init expansion.
package metrics

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	go_metrics "github.com/rcrowley/go-metrics"
)

// Well-known metric names.
const (
	LoadFiles          = "load_files"
	ModelParse         = "model_parse"
	ParseCacheHits     = "parse_cache_hits"
	ModelCompile       = "model_compile"
	CompileStagePrefix = "model_compile_stage_"
	InitExpand         = "init_expand"
	InitLoopIterations = "init_loop_iterations"
	InitEntities       = "init_entities"
	RulesCompiled      = "rules_compiled"
	ExprEval           = "expr_eval"
)

// Metrics is a named collection of timers, histograms and counters.
type Metrics interface {
	Timer(name string) Timer
	Histogram(name string) Histogram
	Counter(name string) Counter
	// All returns the current values keyed by "timer_<name>_ns",
	// "histogram_<name>" and "counter_<name>".
	All() map[string]any
	Clear()
	json.Marshaler
}

// Timer is a restartable timer that accumulates elapsed time.
type Timer interface {
	Value() any
	Int64() int64
	// Start or resume a timer's time tracking.
	Start()
	// Stop a timer, and accumulate the delta (in nanoseconds) since it was last
	// started.
	Stop() int64
}

// Histogram records a distribution of integer samples.
type Histogram interface {
	Value() any
	Update(int64)
}

// Counter is a monotonic increasing counter.
type Counter interface {
	Value() any
	Incr()
	Add(n uint64)
}

// Entry is a single metric value.
type Entry struct {
	Key   string
	Value any
}

type registry struct {
	mtx        sync.Mutex
	timers     map[string]*timer
	histograms map[string]*histogram
	counters   map[string]*counter
}

// New returns a new Metrics object.
func New() Metrics {
	r := &registry{}
	r.Clear()
	return r
}

// NoOp returns a Metrics implementation that records nothing.
func NoOp() Metrics {
	return noOp{}
}

func (r *registry) Timer(name string) Timer {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	t, ok := r.timers[name]
	if !ok {
		t = &timer{}
		r.timers[name] = t
	}
	return t
}

func (r *registry) Histogram(name string) Histogram {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	h, ok := r.histograms[name]
	if !ok {
		// reservoir size and alpha factor as recommended by go-metrics
		h = &histogram{go_metrics.NewHistogram(go_metrics.NewExpDecaySample(1028, 0.015))}
		r.histograms[name] = h
	}
	return h
}

func (r *registry) Counter(name string) Counter {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	c, ok := r.counters[name]
	if !ok {
		c = &counter{}
		r.counters[name] = c
	}
	return c
}

func (r *registry) All() map[string]any {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	result := make(map[string]any, len(r.timers)+len(r.histograms)+len(r.counters))
	for name, t := range r.timers {
		result["timer_"+name+"_ns"] = t.Value()
	}
	for name, h := range r.histograms {
		result["histogram_"+name] = h.Value()
	}
	for name, c := range r.counters {
		result["counter_"+name] = c.Value()
	}
	return result
}

func (r *registry) Clear() {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.timers = map[string]*timer{}
	r.histograms = map[string]*histogram{}
	r.counters = map[string]*counter{}
}

func (r *registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.All())
}

func (r *registry) String() string {
	entries := Sorted(r)
	buf := make([]string, len(entries))
	for i, e := range entries {
		buf[i] = fmt.Sprintf("%v:%v", e.Key, e.Value)
	}
	return strings.Join(buf, " ")
}

// Sorted returns all values of m ordered by key.
func Sorted(m Metrics) []Entry {
	all := m.All()
	out := make([]Entry, 0, len(all))
	for k, v := range all {
		out = append(out, Entry{Key: k, Value: v})
	}
	slices.SortFunc(out, func(a, b Entry) int {
		return strings.Compare(a.Key, b.Key)
	})
	return out
}

// Time runs f under the named timer.
func Time(m Metrics, name string, f func()) {
	t := m.Timer(name)
	t.Start()
	defer t.Stop()
	f()
}

type timer struct {
	mtx   sync.Mutex
	start time.Time
	value int64
}

func (t *timer) Start() {
	t.mtx.Lock()
	t.start = time.Now()
	t.mtx.Unlock()
}

func (t *timer) Stop() int64 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.start.IsZero() {
		return 0
	}
	delta := time.Since(t.start).Nanoseconds()
	t.value += delta
	t.start = time.Time{}
	return delta
}

func (t *timer) Value() any {
	return t.Int64()
}

func (t *timer) Int64() int64 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.value
}

type histogram struct {
	hist go_metrics.Histogram
}

func (h *histogram) Update(v int64) {
	h.hist.Update(v)
}

func (h *histogram) Value() any {
	snap := h.hist.Snapshot()
	p := snap.Percentiles([]float64{0.5, 0.9, 0.99})
	return map[string]any{
		"count":  snap.Count(),
		"min":    snap.Min(),
		"max":    snap.Max(),
		"mean":   snap.Mean(),
		"stddev": snap.StdDev(),
		"median": p[0],
		"90%":    p[1],
		"99%":    p[2],
	}
}

type counter struct {
	c atomic.Uint64
}

func (c *counter) Incr() {
	c.c.Add(1)
}

func (c *counter) Add(n uint64) {
	c.c.Add(n)
}

func (c *counter) Value() any {
	return c.c.Load()
}

type noOp struct{}

type noOpTimer struct{}

type noOpHistogram struct{}

type noOpCounter struct{}

func (noOp) Timer(string) Timer         { return noOpTimer{} }
func (noOp) Histogram(string) Histogram { return noOpHistogram{} }
func (noOp) Counter(string) Counter     { return noOpCounter{} }
func (noOp) All() map[string]any        { return nil }
func (noOp) Clear()                     {}
func (noOp) MarshalJSON() ([]byte, error) {
	return []byte("{}"), nil
}

func (noOpTimer) Start()       {}
func (noOpTimer) Stop() int64  { return 0 }
func (noOpTimer) Value() any   { return 0 }
func (noOpTimer) Int64() int64 { return 0 }

func (noOpHistogram) Update(int64) {}
func (noOpHistogram) Value() any   { return nil }

func (noOpCounter) Incr()      {}
func (noOpCounter) Add(uint64) {}
func (noOpCounter) Value() any { return uint64(0) }
