package upstream

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "covid_tracker_upstream_requests_total",
	Help: "Requests sent to the statistics API, by response code class",
}, []string{"method", "code"})

var metricsLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "covid_tracker_upstream_request_duration_seconds",
	Help:    "Latency of requests sent to the statistics API",
	Buckets: prometheus.DefBuckets,
})

// InstrumentedTransport counts upstream responses by status class.
type InstrumentedTransport struct {
	Inner http.RoundTripper
}

func (t *InstrumentedTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	inner := t.Inner
	if inner == nil {
		inner = http.DefaultTransport
	}

	started := time.Now()
	resp, err := inner.RoundTrip(request)

	metricsRequests.WithLabelValues(request.Method, codeClass(resp)).Inc()
	metricsLatency.Observe(time.Since(started).Seconds())

	return resp, err
}

// codeClass 按 2xx/4xx/5xx 归类，没有响应时记为 error
func codeClass(resp *http.Response) string {
	if resp == nil {
		return "error"
	}
	return strconv.Itoa(resp.StatusCode/100) + "xx"
}

// NewHTTPClient builds the pooled client used for all upstream calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout
	client.Transport = &InstrumentedTransport{Inner: client.Transport}
	return client
}
