// Package datadog implements a Datadog backend for the metrics package.
//
// Samples are buffered in memory and submitted on a ticker so that long
// loads produce a time series, with one final flush on Close. Flush swaps
// the buffers under the lock and submits outside it.
//
// Credentials come from DD_API_KEY and DD_APP_KEY; the site from Options or
// DD_SITE.
package datadog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/vvka-141/pgfastload/internal/metrics"
)

// DefaultPrefix is prepended to every metric name.
const DefaultPrefix = "fastload"

// Options controls the backend.
type Options struct {
	// Prefix defaults to DefaultPrefix.
	Prefix string
	// Site overrides DD_SITE, e.g. "datadoghq.eu".
	Site string
	// Tags are added to every series, e.g. "env:prod".
	Tags []string
	// FlushEvery defaults to 60 seconds.
	FlushEvery time.Duration

	// Test seams.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api    metricsSubmitter
	ctx    context.Context
	prefix string

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}
	closeOnce  sync.Once

	baseTags  []string
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu      sync.Mutex
	counts  map[string]float64
	samples map[string][]float64
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend starts a backend with its flush loop. Network errors surface
// from Flush, not here.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	prefix := strings.TrimSuffix(opts.Prefix, ".")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "service:pgfastload")
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	ctx := dd.NewDefaultContext(parent)
	if opts.Site != "" {
		ctx = context.WithValue(ctx, dd.ContextServerVariables, map[string]string{"site": opts.Site})
	}

	b := &Backend{
		api:        submitter,
		ctx:        ctx,
		prefix:     prefix,
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		counts:     make(map[string]float64),
		samples:    make(map[string][]float64),
	}
	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and flushes what is left. Later calls only flush.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		close(b.stopCh)
		<-b.doneCh
	})
	return b.Flush()
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[seriesKey(name, labels)] += delta
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := seriesKey(name, labels)
	b.samples[k] = append(b.samples[k], value)
}

// Flush submits buffered samples and resets the buffers, even when the
// submission fails.
func (b *Backend) Flush() error {
	b.mu.Lock()
	counts, samples := b.counts, b.samples
	b.counts = make(map[string]float64)
	b.samples = make(map[string][]float64)
	b.mu.Unlock()

	if len(counts) == 0 && len(samples) == 0 {
		return nil
	}

	payload := datadogV2.MetricPayload{Series: b.buildSeries(counts, samples, b.now().Unix())}
	if _, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters()); err != nil {
		return fmt.Errorf("submit metrics to datadog: %w", err)
	}
	return nil
}

// buildSeries is pure; series are ordered by metric name then tags.
func (b *Backend) buildSeries(counts map[string]float64, samples map[string][]float64, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(counts)+6*len(samples))

	for _, k := range sortedKeys(counts) {
		name, tags := splitSeriesKey(k)
		series = append(series, point(b.metric(name), datadogV2.METRICINTAKETYPE_COUNT, counts[k], withTags(b.baseTags, tags...), nowUnix))
	}

	for _, k := range sortedKeys(samples) {
		cp := append([]float64(nil), samples[k]...)
		if len(cp) == 0 {
			continue
		}
		sort.Float64s(cp)
		name, tags := splitSeriesKey(k)
		all := withTags(b.baseTags, tags...)
		metric := b.metric(name)
		series = append(series,
			point(metric+".p50", datadogV2.METRICINTAKETYPE_GAUGE, percentileNearestRank(cp, 0.50), all, nowUnix),
			point(metric+".p90", datadogV2.METRICINTAKETYPE_GAUGE, percentileNearestRank(cp, 0.90), all, nowUnix),
			point(metric+".p95", datadogV2.METRICINTAKETYPE_GAUGE, percentileNearestRank(cp, 0.95), all, nowUnix),
			point(metric+".p99", datadogV2.METRICINTAKETYPE_GAUGE, percentileNearestRank(cp, 0.99), all, nowUnix),
			point(metric+".max", datadogV2.METRICINTAKETYPE_GAUGE, cp[len(cp)-1], all, nowUnix),
			point(metric+".samples", datadogV2.METRICINTAKETYPE_GAUGE, float64(len(cp)), all, nowUnix),
		)
	}
	return series
}

func (b *Backend) metric(name string) string {
	return b.prefix + "." + name
}

func point(metric string, kind datadogV2.MetricIntakeType, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   kind.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

// seriesKey encodes a metric name and its sorted labels as "name\x00k:v\x00k:v".
func seriesKey(name string, labels metrics.Labels) string {
	if len(labels) == 0 {
		return name
	}
	tags := make([]string, 0, len(labels))
	for k, v := range labels {
		if v == "" {
			v = "unknown"
		}
		tags = append(tags, k+":"+v)
	}
	sort.Strings(tags)
	return name + "\x00" + strings.Join(tags, "\x00")
}

func splitSeriesKey(k string) (string, []string) {
	parts := strings.Split(k, "\x00")
	return parts[0], parts[1:]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)
