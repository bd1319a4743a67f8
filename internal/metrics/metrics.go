// Package metrics exposes loop counters to Prometheus.
// All methods are safe to call on nil *Metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/temoto/battwatch/log2"
)

const namespace = "battwatch"

type Config struct {
	Listen string `hcl:"listen"`
}

type Metrics struct {
	packets      prometheus.Counter
	undecoded    prometheus.Counter
	samples      prometheus.Counter
	intents      *prometheus.CounterVec
	dispatch     *prometheus.CounterVec
	dispatchTime prometheus.Histogram
	journalErr   prometheus.Counter
	radioErr     prometheus.Counter
	errors       prometheus.Counter
	alertState   prometheus.Gauge
	voltage      prometheus.Gauge
	rssi         prometheus.Gauge
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		packets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "packets_total",
			Help: "Packets received from radio.",
		}),
		undecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "packets_undecoded_total",
			Help: "Packets with payload that is not valid text.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "voltage_samples_total",
			Help: "Packets with parsed battery voltage.",
		}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "intents_total",
			Help: "Alert transitions by kind.",
		}, []string{"kind"}),
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "dispatch_total",
			Help: "Notification delivery outcomes.",
		}, []string{"result"}),
		dispatchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "dispatch_duration_seconds",
			Help:    "Time spent delivering one notification, retries included.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		journalErr: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "journal_errors_total",
			Help: "Failed journal appends.",
		}),
		radioErr: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "radio_errors_total",
			Help: "Failed radio polls.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "logged_errors_total",
			Help: "Errors written to log.",
		}),
		alertState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "alert_state",
			Help: "1 when battery alert is raised.",
		}),
		voltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "battery_voltage_volts",
			Help: "Last parsed battery voltage.",
		}),
		rssi: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "radio_rssi_dbm",
			Help: "Signal strength of last packet.",
		}),
	}
	collectors := []prometheus.Collector{
		m.packets, m.undecoded, m.samples, m.intents, m.dispatch, m.dispatchTime,
		m.journalErr, m.radioErr, m.errors, m.alertState, m.voltage, m.rssi,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, errors.Annotate(err, "metrics register")
		}
	}
	return m, nil
}

func (m *Metrics) Packet(decoded bool, rssi int) {
	if m == nil {
		return
	}
	m.packets.Inc()
	if !decoded {
		m.undecoded.Inc()
	}
	m.rssi.Set(float64(rssi))
}

func (m *Metrics) Sample(voltage float64) {
	if m == nil {
		return
	}
	m.samples.Inc()
	m.voltage.Set(voltage)
}

func (m *Metrics) Intent(kind string, alerted bool) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(kind).Inc()
	m.SetAlerted(alerted)
}

func (m *Metrics) SetAlerted(alerted bool) {
	if m == nil {
		return
	}
	if alerted {
		m.alertState.Set(1)
	} else {
		m.alertState.Set(0)
	}
}

func (m *Metrics) Dispatch(success bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "fail"
	if success {
		result = "ok"
	}
	m.dispatch.WithLabelValues(result).Inc()
	m.dispatchTime.Observe(d.Seconds())
}

func (m *Metrics) JournalError() {
	if m == nil {
		return
	}
	m.journalErr.Inc()
}

func (m *Metrics) RadioError() {
	if m == nil {
		return
	}
	m.radioErr.Inc()
}

// Error fits log2.ErrorFunc.
func (m *Metrics) Error(error) {
	if m == nil {
		return
	}
	m.errors.Inc()
}

// Serve exposes /metrics and /healthz until ctx is done.
func Serve(ctx context.Context, listen string, g prometheus.Gatherer, log *log2.Log) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()
	log.Infof("metrics listen=%s", listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Annotate(err, "metrics listen")
	}
	return nil
}
