// Pacote voting implementa o motor de votação: criação de votações, voto único por usuário e apuração.
package voting

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marcelojr/votacao-3d/internal/domain"
)

var (
	ErrInvalidVote   = errors.New("votacao invalida")
	ErrNotFound      = errors.New("nao encontrado")
	ErrDuplicateVote = errors.New("usuario ja votou nesta votacao")
)

type ballotKey struct {
	userID string
	voteID domain.VoteID
}

// Store mantém votações, histórico por usuário e justificativas em memória.
// Todas as operações são atômicas do ponto de vista de quem chama.
type Store struct {
	mu sync.RWMutex

	votes []*domain.Vote
	index map[domain.VoteID]int

	voted     map[ballotKey]struct{}
	userVotes map[string][]domain.VoteID

	seq   atomic.Int64
	clock domain.Clock
}

func NewStore(clock domain.Clock) *Store {
	if clock == nil {
		clock = utcClock{}
	}
	return &Store{
		clock:     clock,
		index:     make(map[domain.VoteID]int),
		voted:     make(map[ballotKey]struct{}),
		userVotes: make(map[string][]domain.VoteID),
	}
}

// CreateVote valida a entrada, numera as opções de 1 a N e publica a votação com contadores zerados.
func (s *Store) CreateVote(input domain.NewVote) (domain.Vote, error) {
	if err := validateNewVote(input); err != nil {
		return domain.Vote{}, err
	}

	options := make([]domain.Option, len(input.Options))
	for i, opt := range input.Options {
		options[i] = domain.Option{
			ID:     domain.OptionID(i + 1),
			Text:   strings.TrimSpace(opt.Text),
			Reason: opt.Reason,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := &domain.Vote{
		ID:          domain.VoteID(s.seq.Add(1)),
		Title:       strings.TrimSpace(input.Title),
		PDFFilename: input.PDFFilename,
		OBJFilename: input.OBJFilename,
		GLBFilename: input.GLBFilename,
		Options:     options,
		Reasons:     []domain.Annotation{},
		CreatedAt:   s.clock.Now(),
	}
	s.insertLocked(v)

	return cloneVote(v), nil
}

func (s *Store) ListVotes() []domain.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Vote, len(s.votes))
	for i, v := range s.votes {
		result[i] = cloneVote(v)
	}
	return result
}

func (s *Store) GetVote(id domain.VoteID) (domain.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.lookupLocked(id)
	if !ok {
		return domain.Vote{}, voteNotFound(id)
	}
	return cloneVote(v), nil
}

// CastBallot aceita no máximo um voto por (usuário, votação). A precedência dos erros é:
// votação inexistente, voto duplicado, opção inexistente.
func (s *Store) CastBallot(userID string, voteID domain.VoteID, optionID domain.OptionID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.castLocked(userID, voteID, optionID, reason)
}

func (s *Store) GetResults(id domain.VoteID) (domain.Results, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.lookupLocked(id)
	if !ok {
		return domain.Results{}, voteNotFound(id)
	}
	return tally(v), nil
}

// GetUserVotes devolve as votações em que o usuário já votou, na ordem dos votos.
func (s *Store) GetUserVotes(userID string) []domain.VoteID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.userVotes[userID]
	result := make([]domain.VoteID, len(ids))
	copy(result, ids)
	return result
}

// Restore recarrega votações persistidas e reaplica os votos pelo mesmo caminho do CastBallot.
// Votos rejeitados na reaplicação (duplicados ou órfãos) são ignorados; retorna quantos foram aplicados.
func (s *Store) Restore(votes []domain.Vote, ballots []domain.Ballot) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.votes) > 0 {
		return 0, fmt.Errorf("%w: restore exige store vazio", ErrInvalidVote)
	}

	seen := make(map[domain.VoteID]struct{}, len(votes))
	for _, persisted := range votes {
		if _, exists := seen[persisted.ID]; exists {
			return 0, fmt.Errorf("%w: id %d repetido", ErrInvalidVote, persisted.ID)
		}
		seen[persisted.ID] = struct{}{}
	}

	var maxID int64
	for _, persisted := range votes {
		v := cloneVote(&persisted)
		v.TotalVotes = 0
		v.Reasons = []domain.Annotation{}
		for i := range v.Options {
			v.Options[i].Votes = 0
		}
		s.insertLocked(&v)
		if int64(v.ID) > maxID {
			maxID = int64(v.ID)
		}
	}
	if maxID > s.seq.Load() {
		s.seq.Store(maxID)
	}

	applied := 0
	for _, b := range ballots {
		if err := s.castLocked(b.UserID, b.VoteID, b.OptionID, b.Reason); err != nil {
			continue
		}
		applied++
	}
	return applied, nil
}

// discardVote desfaz uma criação cuja persistência falhou. Votação que já recebeu voto é mantida.
func (s *Store) discardVote(id domain.VoteID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok || s.votes[i].TotalVotes > 0 {
		return false
	}

	s.votes = append(s.votes[:i], s.votes[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.votes); j++ {
		s.index[s.votes[j].ID] = j
	}
	return true
}

func (s *Store) castLocked(userID string, voteID domain.VoteID, optionID domain.OptionID, reason string) error {
	v, ok := s.lookupLocked(voteID)
	if !ok {
		return voteNotFound(voteID)
	}

	key := ballotKey{userID: userID, voteID: voteID}
	if _, already := s.voted[key]; already {
		return ErrDuplicateVote
	}

	pos := -1
	for i := range v.Options {
		if v.Options[i].ID == optionID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return fmt.Errorf("%w: opcao %d na votacao %d", ErrNotFound, optionID, voteID)
	}

	v.Options[pos].Votes++
	v.TotalVotes++
	s.voted[key] = struct{}{}
	s.userVotes[userID] = append(s.userVotes[userID], voteID)
	v.Reasons = append(v.Reasons, domain.Annotation{
		UserID:   userID,
		OptionID: optionID,
		Reason:   reason,
	})
	return nil
}

func (s *Store) insertLocked(v *domain.Vote) {
	s.index[v.ID] = len(s.votes)
	s.votes = append(s.votes, v)
}

func (s *Store) lookupLocked(id domain.VoteID) (*domain.Vote, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.votes[i], true
}

func validateNewVote(input domain.NewVote) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: titulo obrigatorio", ErrInvalidVote)
	}
	if len(input.Options) == 0 {
		return fmt.Errorf("%w: ao menos uma opcao", ErrInvalidVote)
	}
	for i, opt := range input.Options {
		if strings.TrimSpace(opt.Text) == "" {
			return fmt.Errorf("%w: opcao %d sem texto", ErrInvalidVote, i+1)
		}
	}
	return nil
}

func voteNotFound(id domain.VoteID) error {
	return fmt.Errorf("%w: votacao %d", ErrNotFound, id)
}

// cloneVote copia as fatias para que quem recebe o snapshot não enxergue mutações posteriores.
func cloneVote(v *domain.Vote) domain.Vote {
	c := *v
	c.Options = make([]domain.Option, len(v.Options))
	copy(c.Options, v.Options)
	c.Reasons = make([]domain.Annotation, len(v.Reasons))
	copy(c.Reasons, v.Reasons)
	return c
}

type utcClock struct{}

func (utcClock) Now() time.Time {
	return time.Now().UTC()
}
