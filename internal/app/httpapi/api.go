// Pacote httpapi expõe os handlers REST e traduz requisições HTTP para o serviço de votação.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/marcelojr/votacao-3d/internal/app/voting"
	"github.com/marcelojr/votacao-3d/internal/domain"
	"github.com/marcelojr/votacao-3d/internal/platform/metrics"
)

// maxBodyBytes acomoda votações com muitas opções e justificativas longas.
const maxBodyBytes = 50 << 20

// API empacota handlers HTTP ligados ao serviço de votação e ao logger.
type API struct {
	service domain.VotingService
	logger  *slog.Logger
	live    http.HandlerFunc
}

func New(service domain.VotingService, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{service: service, logger: logger}
}

// WithLive habilita a rota de parciais em tempo real.
func (a *API) WithLive(handler http.HandlerFunc) *API {
	a.live = handler
	return a
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", a.handleHealthz)
	mux.HandleFunc("POST /api/votes", a.createVote)
	mux.HandleFunc("GET /api/votes", a.listVotes)
	mux.HandleFunc("GET /api/votes/{id}", a.getVote)
	mux.HandleFunc("GET /api/votes/{id}/results", a.getResults)
	mux.HandleFunc("POST /api/votes/{id}/ballots", a.castBallot)
	mux.HandleFunc("POST /api/ballots", a.castBallot)
	mux.HandleFunc("GET /api/users/{userId}/votes", a.getUserVotes)
	if a.live != nil {
		mux.HandleFunc("GET /api/votes/{id}/live", a.live)
	}
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *API) createVote(w http.ResponseWriter, r *http.Request) {
	var input domain.NewVote
	if err := decodeBody(w, r, &input); err != nil {
		a.logger.Warn("payload invalido ao criar votacao", "err", err)
		responderJSON(w, http.StatusBadRequest, map[string]string{"erro": "payload invalido"})
		return
	}

	v, err := a.service.CreateVote(r.Context(), input)
	if err != nil {
		a.logger.Warn("falha ao criar votacao", "err", err)
		responderErro(w, err)
		return
	}

	responderJSON(w, http.StatusCreated, v)
}

func (a *API) listVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := a.service.ListVotes(r.Context())
	if err != nil {
		a.logger.Error("erro ao listar votacoes", "err", err)
		responderErro(w, err)
		return
	}

	responderJSON(w, http.StatusOK, votes)
}

func (a *API) getVote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathVoteID(w, r)
	if !ok {
		return
	}

	v, err := a.service.GetVote(r.Context(), id)
	if err != nil {
		responderErro(w, err)
		return
	}

	responderJSON(w, http.StatusOK, v)
}

func (a *API) getResults(w http.ResponseWriter, r *http.Request) {
	id, ok := pathVoteID(w, r)
	if !ok {
		return
	}

	results, err := a.service.GetResults(r.Context(), id)
	if err != nil {
		responderErro(w, err)
		return
	}

	responderJSON(w, http.StatusOK, results)
}

func (a *API) getUserVotes(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	ids, err := a.service.GetUserVotes(r.Context(), userID)
	if err != nil {
		a.logger.Error("erro ao listar votos do usuario", "err", err, "user", userID)
		responderErro(w, err)
		return
	}

	responderJSON(w, http.StatusOK, ids)
}

type castBallotRequest struct {
	UserID   string          `json:"userId"`
	VoteID   domain.VoteID   `json:"voteId"`
	OptionID domain.OptionID `json:"optionId"`
	Reason   string          `json:"reason"`
}

type castBallotResponse struct {
	Message  string `json:"message"`
	BallotID string `json:"ballotId"`
}

func (a *API) castBallot(w http.ResponseWriter, r *http.Request) {
	var req castBallotRequest
	if err := decodeBody(w, r, &req); err != nil {
		metrics.ObserveBallotRequest("invalid_payload")
		a.logger.Warn("payload invalido ao registrar voto", "err", err)
		responderJSON(w, http.StatusBadRequest, map[string]string{"erro": "payload invalido"})
		return
	}

	// Na rota aninhada o id do caminho prevalece sobre o corpo.
	if raw := r.PathValue("id"); raw != "" {
		id, ok := pathVoteID(w, r)
		if !ok {
			metrics.ObserveBallotRequest("not_found")
			return
		}
		req.VoteID = id
	}

	if strings.TrimSpace(req.UserID) == "" {
		metrics.ObserveBallotRequest("invalid")
		responderJSON(w, http.StatusBadRequest, map[string]string{"erro": "userId obrigatorio"})
		return
	}

	ballot, err := a.service.CastBallot(r.Context(), domain.Ballot{
		UserID:   req.UserID,
		VoteID:   req.VoteID,
		OptionID: req.OptionID,
		Reason:   req.Reason,
	})
	if err != nil {
		status := statusFromError(err)
		metrics.ObserveBallotRequest(status)
		a.logger.Warn("falha ao registrar voto", "err", err, "vote", req.VoteID, "user", req.UserID, "status", status)
		responderErro(w, err)
		return
	}

	metrics.ObserveBallotRequest("accepted")
	responderJSON(w, http.StatusOK, castBallotResponse{Message: "voto registrado", BallotID: ballot.ID})
	a.logger.Info("voto registrado", "ballot", ballot.ID, "vote", ballot.VoteID, "option", ballot.OptionID)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func pathVoteID(w http.ResponseWriter, r *http.Request) (domain.VoteID, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		responderJSON(w, http.StatusNotFound, map[string]string{"erro": "votacao nao encontrada"})
		return 0, false
	}
	return domain.VoteID(id), true
}

func responderJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func responderErro(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, voting.ErrInvalidVote):
		status = http.StatusBadRequest
	case errors.Is(err, voting.ErrDuplicateVote):
		status = http.StatusBadRequest
	case errors.Is(err, voting.ErrNotFound):
		status = http.StatusNotFound
	}

	responderJSON(w, status, map[string]string{"erro": err.Error()})
}

func statusFromError(err error) string {
	switch {
	case errors.Is(err, voting.ErrDuplicateVote):
		return "duplicate"
	case errors.Is(err, voting.ErrNotFound):
		return "not_found"
	case errors.Is(err, voting.ErrInvalidVote):
		return "invalid"
	default:
		return "error"
	}
}
