package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "booking_insight"

// Metrics 进程内的指标, 每个实例使用独立的 Registry, 测试之间互不干扰
type Metrics struct {
	registry *prometheus.Registry

	Reloads      *prometheus.CounterVec // result=ok|error
	CleanedRows  prometheus.Gauge
	DroppedRows  *prometheus.GaugeVec   // reason=empty_party|unparseable_date|invalid_adr
	Requests     *prometheus.CounterVec // route, code
	ChartsRender *prometheus.CounterVec // chart
	MailFetched  prometheus.Counter
	ReportPushes *prometheus.CounterVec // result=ok|error
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_reloads_total",
			Help:      "Dataset load attempts by result.",
		}, []string{"result"}),
		CleanedRows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cleaned_rows",
			Help:      "Rows in the current cleaned table.",
		}),
		DroppedRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dropped_rows",
			Help:      "Rows dropped by the last cleaning run, by reason.",
		}, []string{"reason"}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
		ChartsRender: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_rendered_total",
			Help:      "PNG charts rendered by chart name.",
		}, []string{"chart"}),
		MailFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_attachments_saved_total",
			Help:      "Dataset attachments saved from the mailbox.",
		}),
		ReportPushes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_pushes_total",
			Help:      "Scheduled report deliveries by result.",
		}, []string{"result"}),
	}
}

// Handler /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 供测试读取指标
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
