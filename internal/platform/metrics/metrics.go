// Pacote metrics concentra os coletores Prometheus de API e worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	votesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "votacao_votes_created_total",
		Help: "Total de votacoes criadas",
	})

	ballotRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "votacao_ballot_requests_total",
		Help: "Total de requisicoes de voto recebidas por status",
	}, []string{"status"})

	sideEffectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "votacao_side_effect_failures_total",
		Help: "Falhas ao propagar votos aceitos para colaboradores externos",
	}, []string{"target"})

	ballotsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "votacao_ballots_processed_total",
		Help: "Total de votos processados pelo worker",
	})

	ballotsRedeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "votacao_ballots_redelivered_total",
		Help: "Votos reentregues pela fila e ignorados pelo worker",
	})

	invalidPayloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "votacao_queue_invalid_payloads_total",
		Help: "Mensagens da fila descartadas por payload invalido",
	}, []string{"queue"})

	ballotProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "votacao_ballot_processing_duration_seconds",
		Help:    "Tempo para processar um voto no worker",
		Buckets: prometheus.DefBuckets,
	})

	liveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "votacao_live_subscribers",
		Help: "Conexoes websocket acompanhando parciais",
	})
)

func IncVoteCreated() {
	votesCreatedTotal.Inc()
}

func ObserveBallotRequest(status string) {
	ballotRequestsTotal.WithLabelValues(status).Inc()
}

func IncSideEffectFailure(target string) {
	sideEffectFailuresTotal.WithLabelValues(target).Inc()
}

func IncBallotProcessed() {
	ballotsProcessedTotal.Inc()
}

func IncBallotRedelivered() {
	ballotsRedeliveredTotal.Inc()
}

func IncInvalidPayload(queue string) {
	invalidPayloadsTotal.WithLabelValues(queue).Inc()
}

func ObserveProcessingDuration(seconds float64) {
	ballotProcessingDuration.Observe(seconds)
}

func SetLiveSubscribers(n int) {
	liveSubscribers.Set(float64(n))
}
