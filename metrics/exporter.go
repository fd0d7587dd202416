package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
)

// Exporter serves a Registry in Prometheus text exposition format.
// Histograms are exported as summaries with _count, _sum and _max.
type Exporter struct {
	namespace string
	registry  *Registry
}

// NewExporter returns an exporter for r. Metric names get namespace and an
// underscore prepended unless namespace is empty.
func NewExporter(r *Registry, namespace string) *Exporter {
	if r == nil {
		r = DefaultRegistry
	}
	return &Exporter{namespace: namespace, registry: r}
}

// ServeHTTP implements http.Handler.
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	e.WriteTo(w)
}

// WriteTo writes every registered metric, sorted by name within each kind.
func (e *Exporter) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	e.registry.mu.RLock()
	for _, name := range sortedKeys(e.registry.counters) {
		n := e.promName(name)
		writeHeader(&b, n, "counter", name)
		fmt.Fprintf(&b, "%s %d\n", n, e.registry.counters[name].Value())
	}
	for _, name := range sortedKeys(e.registry.gauges) {
		n := e.promName(name)
		writeHeader(&b, n, "gauge", name)
		fmt.Fprintf(&b, "%s %d\n", n, e.registry.gauges[name].Value())
	}
	for _, name := range sortedKeys(e.registry.histograms) {
		h := e.registry.histograms[name]
		n := e.promName(name)
		writeHeader(&b, n, "summary", name)
		fmt.Fprintf(&b, "%s_count %d\n", n, h.Count())
		fmt.Fprintf(&b, "%s_sum %s\n", n, formatFloat(h.Sum()))
		if h.Count() > 0 {
			fmt.Fprintf(&b, "%s_max %s\n", n, formatFloat(h.Max()))
		}
	}
	e.registry.mu.RUnlock()

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// promName maps "randao.campaigns_created" to "qmc_randao_campaigns_created".
func (e *Exporter) promName(name string) string {
	s := strings.NewReplacer(".", "_", "-", "_").Replace(name)
	if e.namespace != "" {
		return e.namespace + "_" + s
	}
	return s
}

func writeHeader(b *strings.Builder, name, kind, help string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, kind)
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return fmt.Sprintf("%g", v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
