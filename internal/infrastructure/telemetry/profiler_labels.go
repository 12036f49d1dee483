package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelRoute   = "route"
	ProfilingLabelMethod  = "method"
	ProfilingLabelRole    = "role"
	ProfilingLabelJobKind = "job_kind"
)

// maxProfilingLabelLength caps label values to keep series small
const maxProfilingLabelLength = 128

// unboundedProfilingLabels would create one series per request or entity
var unboundedProfilingLabels = map[string]bool{
	"request_id":  true,
	"trace_id":    true,
	"span_id":     true,
	"operator_id": true,
	"order_id":    true,
	"payment_id":  true,
	"closing_id":  true,
	"folio":       true,
	"plate":       true,
}

// WithProfilingLabels runs fn with pprof labels attached to its goroutine,
// so CPU and allocation samples can be split by route or job in Pyroscope.
// Labels that would explode cardinality are dropped.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := profilingLabelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// profilingLabelPairs returns sorted key/value pairs without empty,
// unbounded or oversized entries
func profilingLabelPairs(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, k := range keys {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(k), "-", "_"))
		value := labels[k]
		if key == "" || value == "" || unboundedProfilingLabels[key] {
			continue
		}
		if len(value) > maxProfilingLabelLength {
			value = value[:maxProfilingLabelLength]
		}
		pairs = append(pairs, key, value)
	}
	return pairs
}
