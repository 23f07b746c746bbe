// Pacote live transmite as parciais de cada votação por websocket assim que um voto é aceito.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"

	"github.com/marcelojr/votacao-3d/internal/app/voting"
	"github.com/marcelojr/votacao-3d/internal/domain"
	"github.com/marcelojr/votacao-3d/internal/platform/metrics"
)

const (
	clientBuffer    = 16
	broadcastBuffer = 256
	writeTimeout    = 5 * time.Second
)

type ResultsReader interface {
	GetResults(ctx context.Context, id domain.VoteID) (domain.Results, error)
}

type client struct {
	voteID domain.VoteID
	send   chan []byte
}

// Hub mantém os assinantes por votação; apenas a goroutine de Run toca no mapa de clientes.
type Hub struct {
	clients    map[domain.VoteID]map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan domain.Results
	done       chan struct{}

	origins []string
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger, originPatterns []string) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[domain.VoteID]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan domain.Results, broadcastBuffer),
		done:       make(chan struct{}),
		origins:    originPatterns,
		logger:     logger,
	}
}

// Run processa registros e difusões até o contexto terminar, quando fecha todos os clientes.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	total := 0
	for {
		select {
		case <-ctx.Done():
			for _, subs := range h.clients {
				for c := range subs {
					close(c.send)
				}
			}
			h.clients = make(map[domain.VoteID]map[*client]struct{})
			metrics.SetLiveSubscribers(0)
			return

		case c := <-h.register:
			subs := h.clients[c.voteID]
			if subs == nil {
				subs = make(map[*client]struct{})
				h.clients[c.voteID] = subs
			}
			subs[c] = struct{}{}
			total++
			metrics.SetLiveSubscribers(total)

		case c := <-h.unregister:
			if h.remove(c) {
				total--
				metrics.SetLiveSubscribers(total)
			}

		case results := <-h.broadcast:
			subs := h.clients[results.ID]
			if len(subs) == 0 {
				continue
			}
			payload, err := json.Marshal(results)
			if err != nil {
				h.logger.Error("falha serializando parciais", "vote", results.ID, "err", err)
				continue
			}
			for c := range subs {
				select {
				case c.send <- payload:
				default:
					// Cliente lento: desconectamos em vez de atrasar os demais.
					h.remove(c)
					total--
					metrics.SetLiveSubscribers(total)
				}
			}
		}
	}
}

// Notify nunca bloqueia o caminho do voto; com o buffer cheio a atualização é descartada.
func (h *Hub) Notify(results domain.Results) {
	select {
	case h.broadcast <- results:
	default:
		h.logger.Warn("parciais descartadas, buffer cheio", "vote", results.ID)
	}
}

// Handler envia as parciais atuais logo após o upgrade e depois cada atualização da votação.
func (h *Hub) Handler(reader ResultsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "id invalido", http.StatusNotFound)
			return
		}
		id := domain.VoteID(raw)

		if _, err := reader.GetResults(r.Context(), id); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, voting.ErrNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
		if err != nil {
			h.logger.Warn("falha no upgrade websocket", "vote", id, "err", err)
			return
		}
		defer conn.CloseNow()

		c := &client{voteID: id, send: make(chan []byte, clientBuffer)}
		select {
		case h.register <- c:
		case <-h.done:
			conn.Close(websocket.StatusGoingAway, "servidor encerrando")
			return
		case <-r.Context().Done():
			return
		}
		defer func() {
			select {
			case h.unregister <- c:
			case <-h.done:
			}
		}()

		ctx := conn.CloseRead(r.Context())

		results, err := reader.GetResults(ctx, id)
		if err != nil {
			conn.Close(websocket.StatusInternalError, "falha ao ler parciais")
			return
		}
		initial, err := json.Marshal(results)
		if err != nil {
			conn.Close(websocket.StatusInternalError, "falha ao serializar parciais")
			return
		}
		if err := h.write(ctx, conn, initial); err != nil {
			return
		}

		for {
			select {
			case msg, ok := <-c.send:
				if !ok {
					conn.Close(websocket.StatusPolicyViolation, "conexao encerrada pelo servidor")
					return
				}
				if err := h.write(ctx, conn, msg); err != nil {
					h.logger.Info("assinante desconectado", "vote", id, "err", err)
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}

func (h *Hub) remove(c *client) bool {
	subs := h.clients[c.voteID]
	if _, ok := subs[c]; !ok {
		return false
	}
	delete(subs, c)
	close(c.send)
	if len(subs) == 0 {
		delete(h.clients, c.voteID)
	}
	return true
}

var _ domain.ResultsNotifier = (*Hub)(nil)
