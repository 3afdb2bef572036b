package collab

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	handshakesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collabsync_handshakes_total",
		Help: "Handshake attempts by outcome.",
	}, []string{"outcome"})

	editsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collabsync_edits_total",
		Help: "Edits applied to the document registry.",
	})

	protocolErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collabsync_protocol_errors_total",
		Help: "Errors reported to clients by code.",
	}, []string{"code"})

	openDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collabsync_open_documents",
		Help: "Documents currently held in the document registry.",
	})

	boundConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collabsync_bound_connections",
		Help: "Connections currently bound to a document.",
	})
)
