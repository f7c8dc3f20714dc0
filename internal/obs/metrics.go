package obs

// Label is a key/value pair attached to measurements.
type Label struct {
	Key   string
	Value string
}

// L is shorthand for a Label.
func L(key, value string) Label { return Label{Key: key, Value: value} }

// Meter emits counters and histograms. Implementations may no-op or bridge
// to a metrics system.
type Meter interface {
	Counter(name string, value float64, labels ...Label)
	Histogram(name string, value float64, labels ...Label)
}

// NopMeter is a Meter that discards all measurements.
type NopMeter struct{}

func (NopMeter) Counter(name string, value float64, labels ...Label)   {}
func (NopMeter) Histogram(name string, value float64, labels ...Label) {}

// MeterOrNop returns m, or NopMeter when m is nil.
func MeterOrNop(m Meter) Meter {
	if m == nil {
		return NopMeter{}
	}
	return m
}
