package monitoring

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"match-ticketing/internal/store"
	"match-ticketing/models"
)

var (
	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_entries",
			Help: "Current queue entries per match and status",
		},
		[]string{"match_id", "status"},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_operations_total",
			Help: "Total queue operations",
		},
		[]string{"operation", "match_id", "status"},
	)

	promotions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_promotions_total",
			Help: "Queue entries promoted to processing",
		},
		[]string{"match_id"},
	)

	bookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Booking confirmations by outcome",
		},
		[]string{"match_id", "outcome"},
	)

	ticketsSold = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_sold_total",
			Help: "Tickets removed from stand inventory",
		},
		[]string{"match_id"},
	)

	windowExpirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_window_expirations_total",
			Help: "Booking windows that elapsed unused",
		},
		[]string{"match_id"},
	)
)

type Monitor struct {
	store store.Store
}

func NewMonitor(st store.Store) *Monitor {
	monitor := &Monitor{store: st}

	// Start metrics collection
	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		m.collectQueueDepth(ctx)
		cancel()
	}
}

func (m *Monitor) collectQueueDepth(ctx context.Context) {
	matches, err := m.store.ListMatches(ctx)
	if err != nil {
		log.Printf("Error collecting queue depth: %v", err)
		return
	}

	for _, match := range matches {
		for _, st := range []models.QueueStatus{models.StatusWaiting, models.StatusProcessing} {
			count, err := m.store.CountByStatus(ctx, match.ID, st)
			if err != nil {
				continue
			}
			queueDepth.WithLabelValues(match.ID, string(st)).Set(float64(count))
		}
	}
}

// Serve exposes the metrics endpoint on its own port.
func (m *Monitor) Serve(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()
}

// TrackQueueOperation counts a queue operation and its outcome.
func (m *Monitor) TrackQueueOperation(operation, matchID, outcome string) {
	queueOperations.WithLabelValues(operation, matchID, outcome).Inc()
}

func (m *Monitor) TrackPromotion(matchID string) {
	promotions.WithLabelValues(matchID).Inc()
}

// TrackBooking counts a booking attempt; qty is only added for successes.
func (m *Monitor) TrackBooking(matchID, outcome string, qty int) {
	bookings.WithLabelValues(matchID, outcome).Inc()
	if qty > 0 {
		ticketsSold.WithLabelValues(matchID).Add(float64(qty))
	}
}

func (m *Monitor) TrackWindowExpiration(matchID string) {
	windowExpirations.WithLabelValues(matchID).Inc()
}
