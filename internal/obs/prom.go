package obs

import (
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMeter registers a counter or histogram vector the first time a name
// is seen. The label keys used with a name must not change afterwards.
type PromMeter struct {
	reg     prometheus.Registerer
	buckets []float64

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPromMeter returns a meter registering with reg, or with the default
// registerer when reg is nil.
func NewPromMeter(reg prometheus.Registerer) *PromMeter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PromMeter{
		reg:        reg,
		buckets:    prometheus.DefBuckets,
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
}

func (p *PromMeter) Counter(name string, value float64, labels ...Label) {
	keys, vals := split(labels)
	p.mu.Lock()
	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help(name)}, keys)
		vec = register(p.reg, vec)
		p.counters[name] = vec
	}
	p.mu.Unlock()
	if c, err := vec.GetMetricWithLabelValues(vals...); err == nil {
		c.Add(value)
	}
}

func (p *PromMeter) Histogram(name string, value float64, labels ...Label) {
	keys, vals := split(labels)
	p.mu.Lock()
	vec, ok := p.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help(name), Buckets: p.buckets}, keys)
		vec = register(p.reg, vec)
		p.histograms[name] = vec
	}
	p.mu.Unlock()
	if h, err := vec.GetMetricWithLabelValues(vals...); err == nil {
		h.Observe(value)
	}
}

// register returns the collector already registered under the same
// description when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func split(labels []Label) ([]string, []string) {
	sorted := append([]Label(nil), labels...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	keys := make([]string, len(sorted))
	vals := make([]string, len(sorted))
	for i, l := range sorted {
		keys[i] = l.Key
		vals[i] = l.Value
	}
	return keys, vals
}

func help(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
