package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	screenshotUploadsTotal      atomic.Uint64
	ocrUploadsTotal             atomic.Uint64
	evictionsTotal              atomic.Uint64
	evictionDeleteFailuresTotal atomic.Uint64
	reconciliationsTotal        atomic.Uint64
	hydrationFailuresTotal      atomic.Uint64
	ocrFailuresTotal            atomic.Uint64

	reconcileDuration = newHistogram([]float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000})
)

// IncScreenshotUpload increments the screenshot upload counter.
func IncScreenshotUpload() {
	screenshotUploadsTotal.Add(1)
}

// IncOCRUpload increments the OCR upload counter.
func IncOCRUpload() {
	ocrUploadsTotal.Add(1)
}

// AddEvictions records n entries evicted by the retention policy.
func AddEvictions(n int) {
	if n > 0 {
		evictionsTotal.Add(uint64(n))
	}
}

// IncEvictionDeleteFailure increments the swallowed eviction delete counter.
func IncEvictionDeleteFailure() {
	evictionDeleteFailuresTotal.Add(1)
}

// IncReconciliation increments the reconciliation counter.
func IncReconciliation() {
	reconciliationsTotal.Add(1)
}

// IncHydrationFailure increments the per-blob hydration failure counter.
func IncHydrationFailure() {
	hydrationFailuresTotal.Add(1)
}

// IncOCRFailure increments the OCR collaborator failure counter.
func IncOCRFailure() {
	ocrFailuresTotal.Add(1)
}

// ObserveReconcileDurationMs records a reconciliation duration in milliseconds.
func ObserveReconcileDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	reconcileDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "screenshot_uploads_total", "Total screenshot uploads", screenshotUploadsTotal.Load())
	writeCounter(&buf, "ocr_uploads_total", "Total OCR uploads", ocrUploadsTotal.Load())
	writeCounter(&buf, "evictions_total", "Total entries evicted by retention", evictionsTotal.Load())
	writeCounter(&buf, "eviction_delete_failures_total", "Total swallowed blob delete failures during eviction", evictionDeleteFailuresTotal.Load())
	writeCounter(&buf, "reconciliations_total", "Total index reconciliations", reconciliationsTotal.Load())
	writeCounter(&buf, "hydration_failures_total", "Total OCR blobs dropped during reconciliation", hydrationFailuresTotal.Load())
	writeCounter(&buf, "ocr_failures_total", "Total OCR collaborator failures", ocrFailuresTotal.Load())
	writeHistogram(&buf, "reconcile_duration_ms", "Reconciliation duration in milliseconds", reconcileDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
