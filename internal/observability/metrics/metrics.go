package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the tool-calling loop.
type ConversationMetrics struct {
	toolDispatchTotal *prometheus.CounterVec
	loopIterations    prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		toolDispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sdria",
			Subsystem: "conversation",
			Name:      "tool_dispatch_total",
			Help:      "Total tool invocations dispatched by the orchestrator",
		}, []string{"tool", "status"}),
		loopIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sdria",
			Subsystem: "conversation",
			Name:      "loop_iterations",
			Help:      "Iterations of the tool-calling loop per inbound message",
			Buckets:   []float64{1, 2, 3, 4, 5, 7, 10},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.toolDispatchTotal, m.loopIterations)
	return m
}

func (m *ConversationMetrics) ObserveToolDispatch(tool, status string) {
	if m == nil {
		return
	}
	m.toolDispatchTotal.WithLabelValues(tool, status).Inc()
}

func (m *ConversationMetrics) ObserveLoopIterations(n int) {
	if m == nil {
		return
	}
	m.loopIterations.Observe(float64(n))
}

// SchedulingMetrics exposes counters for availability and booking flows,
// including the degraded simulated fallbacks that mask upstream outages.
type SchedulingMetrics struct {
	bookingsTotal          *prometheus.CounterVec
	simulatedFallbackTotal *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sdria",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Total booking attempts",
		}, []string{"provider", "status"}),
		simulatedFallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sdria",
			Subsystem: "scheduling",
			Name:      "simulated_fallback_total",
			Help:      "Times a real provider failure degraded to a simulated result",
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.simulatedFallbackTotal)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(provider, status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(provider, status).Inc()
}

func (m *SchedulingMetrics) ObserveSimulatedFallback(operation string) {
	if m == nil {
		return
	}
	m.simulatedFallbackTotal.WithLabelValues(operation).Inc()
}
