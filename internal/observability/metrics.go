package observability

import (
	"errors"
	"net/http"
	"sync"

	"github.com/danmuck/dhcptap/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	envelopesEncoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dhcptap",
			Subsystem: "codec",
			Name:      "envelopes_encoded_total",
			Help:      "Envelopes encoded, by record kind.",
		},
		[]string{"kind"},
	)
	envelopesDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dhcptap",
			Subsystem: "codec",
			Name:      "envelopes_decoded_total",
			Help:      "Envelopes decoded, by record kind.",
		},
		[]string{"kind"},
	)
	codecErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dhcptap",
			Subsystem: "codec",
			Name:      "errors_total",
			Help:      "Codec failures, by operation and reason.",
		},
		[]string{"op", "reason"},
	)
	envelopeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dhcptap",
			Subsystem: "codec",
			Name:      "envelope_bytes",
			Help:      "Envelope size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
		},
		[]string{"op"},
	)
	publishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dhcptap",
			Subsystem: "sink",
			Name:      "publish_total",
			Help:      "Publish attempts, by result.",
		},
		[]string{"sink", "result"},
	)
	connectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dhcptap",
			Subsystem: "sink",
			Name:      "connect_attempts_total",
			Help:      "Broker connect attempts, by result.",
		},
		[]string{"sink", "result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(envelopesEncoded, envelopesDecoded, codecErrors, envelopeBytes, publishes, connectAttempts)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordEncode(tag protocol.Tag, size int) {
	RegisterMetrics()
	envelopesEncoded.WithLabelValues(tag.String()).Inc()
	envelopeBytes.WithLabelValues("encode").Observe(float64(size))
}

func RecordDecode(tag protocol.Tag, size int) {
	RegisterMetrics()
	envelopesDecoded.WithLabelValues(tag.String()).Inc()
	envelopeBytes.WithLabelValues("decode").Observe(float64(size))
}

func RecordCodecError(op string, err error) {
	RegisterMetrics()
	codecErrors.WithLabelValues(op, ErrorReason(err)).Inc()
}

func RecordPublish(sink string, err error) {
	RegisterMetrics()
	publishes.WithLabelValues(sink, result(err)).Inc()
}

func RecordConnect(sink string, err error) {
	RegisterMetrics()
	connectAttempts.WithLabelValues(sink, result(err)).Inc()
}

// ErrorReason maps a codec error onto a bounded label value.
func ErrorReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, protocol.ErrTruncated):
		return "truncated"
	case errors.Is(err, protocol.ErrInvalidEncoding):
		return "invalid_encoding"
	case errors.Is(err, protocol.ErrWrongRecordType):
		return "wrong_record_type"
	case errors.Is(err, protocol.ErrFieldTooLong):
		return "field_too_long"
	case errors.Is(err, protocol.ErrInvalidField):
		return "invalid_field"
	case errors.Is(err, protocol.ErrInvalidNestedMessage):
		return "invalid_nested_message"
	default:
		return "other"
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
