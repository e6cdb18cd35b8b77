package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the settlement engine.
type Metrics struct {
	// --- Core processing ---
	CoreEventsApplied  *prometheus.CounterVec
	CoreEventsRejected *prometheus.CounterVec
	CoreEventDuration  *prometheus.HistogramVec
	CoreSequence       prometheus.Gauge

	// --- Game state ---
	JackpotValue      prometheus.Gauge
	JackpotGeneration prometheus.Gauge
	CheckpointCount   prometheus.Gauge
	InvestorCount     prometheus.Gauge
	OrderBookDepth    prometheus.Gauge

	// --- Settlement ---
	ProvisionRowsTagged prometheus.Counter
	PayoutsQueued       *prometheus.GaugeVec
	PayoutsDrained      *prometheus.CounterVec
	PaymentsIssued      *prometheus.CounterVec
	TokensMined         prometheus.Counter

	// --- Idempotency & ordering ---
	IdempotencyDuplicates *prometheus.CounterVec
	EventSequenceGap      *prometheus.CounterVec
	EventOutOfOrder       *prometheus.CounterVec

	// --- Channel & backpressure ---
	ChannelSize         *prometheus.GaugeVec
	ChannelCapacity     *prometheus.GaugeVec
	ChannelUtilization  *prometheus.GaugeVec
	ProjectionDrops     *prometheus.CounterVec
	PersistBackpressure prometheus.Counter

	// --- Persistence ---
	PersistEventsWritten prometheus.Counter
	PersistRowsWritten   *prometheus.CounterVec
	PersistBatchDur      prometheus.Histogram
	PersistErrors        *prometheus.CounterVec
	PersistRetry         prometheus.Counter
	PersistLastSequence  prometheus.Gauge

	// --- Ingestion ---
	NATSDeliveryLatency *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	ingestBuckets := []float64{
		0.001, 0.0025, 0.005, 0.01, 0.025,
		0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
	}

	return &Metrics{
		// Core processing
		CoreEventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "diamond_core_events_applied_total",
			Help: "Events successfully applied by the core",
		}, []string{"event_type"}),

		CoreEventsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "diamond_core_events_rejected_total",
			Help: "Events rejected (dedup, gap, validation)",
		}, []string{"event_type", "reason"}),

		CoreEventDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diamond_core_event_apply_duration_seconds",
			Help:    "Time to apply a single event in the core",
			Buckets: latencyBuckets,
		}, []string{"event_type"}),

		CoreSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "diamond_core_sequence",
			Help: "Current global sequence number",
		}),

		// Game state
		JackpotValue: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "diamond_jackpot_value_eos_units",
			Help: "Live jackpot fund value in EOS smallest units",
		}),

		JackpotGeneration: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "diamond_jackpot_generation",
			Help: "Primary key of the live fund generation",
		}),

		CheckpointCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "diamond_checkpoint_count",
			Help: "Checkpoints currently registered",
		}),

		InvestorCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "diamond_investor_count",
			Help: "Investor rows in the current generation",
		}),

		OrderBookDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "diamond_order_book_depth",
			Help: "Open BLKBILL sell orders",
		}),

		// Settlement
		ProvisionRowsTagged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "diamond_provision_rows_tagged_total",
			Help: "Investor rows tagged by provision runs",
		}),

		PayoutsQueued: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "diamond_payouts_queued",
			Help: "Entries waiting in a payout queue",
		}, []string{"queue"}),

		PayoutsDrained: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "diamond_payouts_drained_total",
			Help: "Payout entries drained from a queue",
		}, []string{"queue"}),

		PaymentsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "diamond_payments_issued_total",
			Help: "Payment requests handed to the gateway",
		}, []string{"symbol"}),

		TokensMined: promauto.NewCounter(prometheus.CounterOpts{
			Name: "diamond_tokens_mined_total",
			Help: "BLKBILL smallest units minted as rewards",
		}),

		// Idempotency & ordering
		IdempotencyDuplicates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "diamond_idempotency_duplicates_total",
			Help: "Duplicates caught (lru/postgres)",
		}, []string{"event_type", "tier"}),

		EventSequenceGap: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "diamond_event_sequence_gap_total",
			Help: "Source sequence gaps",
		}, []string{"partition"}),

		EventOutOfOrder: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "diamond_event_out_of_order_total",
			Help: "Out-of-order rejections",
		}, []string{"partition"}),

		// Channel & backpressure
		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "diamond_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "diamond_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		ChannelUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "diamond_channel_utilization",
			Help: "Channel size / capacity (0.0-1.0)",
		}, []string{"name"}),

		ProjectionDrops: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "diamond_projection_drops_total",
			Help: "Events dropped due to full projection channel",
		}, []string{"projection"}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "diamond_persist_backpressure_total",
			Help: "Times the core blocked on the persist channel",
		}),

		// Persistence
		PersistEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "diamond_persist_events_written_total",
			Help: "Event envelopes written to Postgres",
		}),

		PersistRowsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "diamond_persist_rows_written_total",
			Help: "Domain rows written to Postgres",
		}, []string{"table"}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "diamond_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "diamond_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "diamond_persist_retry_total",
			Help: "Persistence retries",
		}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "diamond_persist_last_sequence",
			Help: "Last persisted sequence",
		}),

		// Ingestion
		NATSDeliveryLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diamond_nats_delivery_latency_seconds",
			Help:    "Time from NATS publish to settlement hand-over",
			Buckets: ingestBuckets,
		}, []string{"stream"}),
	}
}

// SetChannelMetrics updates channel utilization metrics.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
	if capacity > 0 {
		m.ChannelUtilization.WithLabelValues(name).Set(float64(size) / float64(capacity))
	}
}
