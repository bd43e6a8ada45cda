package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Résultats d'une livraison
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
	OutcomePruned = "pruned"
)

var (
	pushDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Livraisons push par résultat (sent, failed, pruned).",
		},
		[]string{"outcome"},
	)
	broadcastDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "push_broadcast_duration_seconds",
			Help:    "Durée d'une diffusion complète, tous destinataires réglés.",
			Buckets: prometheus.DefBuckets,
		},
	)
	broadcastRecipients = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "push_broadcast_recipients",
			Help:    "Nombre d'abonnements lus par diffusion.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)

func init() {
	prometheus.MustRegister(pushDeliveries, broadcastDuration, broadcastRecipients)
}
