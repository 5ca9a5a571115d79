package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "netcall"

var (
	callsDesc = prometheus.NewDesc(namespace+"_calls_total",
		"Dispatched calls by call name.", []string{"call"}, nil)
	callErrorsDesc = prometheus.NewDesc(namespace+"_call_errors_total",
		"Failed calls by call name.", []string{"call"}, nil)
	handlesDesc = prometheus.NewDesc(namespace+"_handles",
		"Live handles by state.", []string{"state"}, nil)
	handlesOpenedDesc = prometheus.NewDesc(namespace+"_handles_opened_total",
		"Handles registered since start.", nil, nil)
	handlesRetiredDesc = prometheus.NewDesc(namespace+"_handles_retired_total",
		"Handles retired since start.", nil, nil)
	bytesInDesc = prometheus.NewDesc(namespace+"_bytes_received_total",
		"Bytes read from connections.", nil, nil)
	bytesOutDesc = prometheus.NewDesc(namespace+"_bytes_sent_total",
		"Bytes written to connections.", nil, nil)
	waitsDesc = prometheus.NewDesc(namespace+"_waits_total",
		"Connect-and-wait calls completed.", nil, nil)
	waitFailuresDesc = prometheus.NewDesc(namespace+"_wait_failures_total",
		"Connect-and-wait calls that never connected.", nil, nil)
)

// promCollector adapts a Collector to prometheus.Collector.  Values are
// read from a fresh Snapshot on every scrape.
type promCollector struct {
	c *Collector
}

// Prometheus returns a prometheus.Collector exporting c.
func (c *Collector) Prometheus() prometheus.Collector {
	return promCollector{c: c}
}

// Register registers c with reg (prometheus.DefaultRegisterer when nil).
func (c *Collector) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return reg.Register(c.Prometheus())
}

func (p promCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- callsDesc
	ch <- callErrorsDesc
	ch <- handlesDesc
	ch <- handlesOpenedDesc
	ch <- handlesRetiredDesc
	ch <- bytesInDesc
	ch <- bytesOutDesc
	ch <- waitsDesc
	ch <- waitFailuresDesc
}

func (p promCollector) Collect(ch chan<- prometheus.Metric) {
	s := p.c.Snapshot()

	for _, name := range s.CallNames() {
		st := s.Calls[name]
		ch <- prometheus.MustNewConstMetric(callsDesc, prometheus.CounterValue, float64(st.Total), name)
		ch <- prometheus.MustNewConstMetric(callErrorsDesc, prometheus.CounterValue, float64(st.Errors), name)
	}
	ch <- prometheus.MustNewConstMetric(handlesDesc, prometheus.GaugeValue, float64(s.HandlesIdle), "idle")
	ch <- prometheus.MustNewConstMetric(handlesDesc, prometheus.GaugeValue, float64(s.HandlesBusy), "busy")
	ch <- prometheus.MustNewConstMetric(handlesOpenedDesc, prometheus.CounterValue, float64(s.HandlesOpened))
	ch <- prometheus.MustNewConstMetric(handlesRetiredDesc, prometheus.CounterValue, float64(s.HandlesRetired))
	ch <- prometheus.MustNewConstMetric(bytesInDesc, prometheus.CounterValue, float64(s.BytesIn))
	ch <- prometheus.MustNewConstMetric(bytesOutDesc, prometheus.CounterValue, float64(s.BytesOut))
	ch <- prometheus.MustNewConstMetric(waitsDesc, prometheus.CounterValue, float64(s.Waits))
	ch <- prometheus.MustNewConstMetric(waitFailuresDesc, prometheus.CounterValue, float64(s.WaitFailures))
}
