package check

// Collection is the ordered report produced by one verifier run.
type Collection struct {
	results []Result
}

func NewCollection(results ...*Result) Collection {
	var c Collection
	for _, r := range results {
		c.Add(r)
	}
	return c
}

// Abort builds the report for input that could not be evaluated at all.
func Abort(summary string) Collection {
	return NewCollection(Crit(summary))
}

// Add appends r. A nil result means the rule was not configured and is dropped.
func (c *Collection) Add(r *Result) {
	if r == nil {
		return
	}
	c.results = append(c.results, *r)
}

func (c Collection) Results() []Result {
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}

func (c Collection) Len() int {
	return len(c.results)
}

// Status is the worst severity in the collection, OK when empty.
func (c Collection) Status() Severity {
	status := OKSeverity
	for _, r := range c.results {
		if r.Severity > status {
			status = r.Severity
		}
	}
	return status
}

// Metrics returns the performance data of all results in order.
func (c Collection) Metrics() []Metric {
	var metrics []Metric
	for _, r := range c.results {
		if r.Metric != nil {
			metrics = append(metrics, *r.Metric)
		}
	}
	return metrics
}

// Metric looks up the first metric with the given label.
func (c Collection) Metric(label string) (Metric, bool) {
	for _, m := range c.Metrics() {
		if m.Label == label {
			return m, true
		}
	}
	return Metric{}, false
}
