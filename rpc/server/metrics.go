package server

import (
	"fmt"
	"io"

	"github.com/ValentinKolb/dNT/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

// serverMetrics holds the request metrics of one server. Each server owns a
// metrics.Set, so several servers in one process do not share counters.
type serverMetrics struct {
	set *metrics.Set
}

func newServerMetrics() *serverMetrics {
	return &serverMetrics{set: metrics.NewSet()}
}

// observe records one handled request
func (m *serverMetrics) observe(instanceID uint64, req, resp *common.Message, seconds float64) {
	labels := fmt.Sprintf(`instance="%d",type=%q`, instanceID, req.MsgType.String())
	m.set.GetOrCreateCounter(`dnt_rpc_requests_total{` + labels + `}`).Inc()
	m.set.GetOrCreateHistogram(`dnt_rpc_request_duration_seconds{` + labels + `}`).Update(seconds)
	if resp.MsgType == common.MsgTError || resp.Err != "" {
		m.set.GetOrCreateCounter(`dnt_rpc_errors_total{` + labels + `}`).Inc()
	}
}

// rejected counts requests that never reached an instance
func (m *serverMetrics) rejected(reason string) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`dnt_rpc_rejected_total{reason=%q}`, reason)).Inc()
}

// registerInstance adds gauges that read the state of an instance on every scrape
func (m *serverMetrics) registerInstance(instanceID uint64, svc IPeerService) {
	label := fmt.Sprintf(`{instance="%d"}`, instanceID)
	m.set.GetOrCreateGauge(`dnt_entries`+label, func() float64 {
		return float64(svc.GetDBInfo().Entries)
	})
	m.set.GetOrCreateGauge(`dnt_entries_size_bytes`+label, func() float64 {
		return float64(svc.GetDBInfo().SizeBytes)
	})
	m.set.GetOrCreateGauge(`dnt_connected`+label, func() float64 {
		if svc.IsConnected() {
			return 1
		}
		return 0
	})
}

// WritePrometheus writes the process metrics and the server metrics
func (m *serverMetrics) WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
	m.set.WritePrometheus(w)
}
