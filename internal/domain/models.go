package domain

import (
	"errors"
	"time"
)

type (
	VoteID   int64
	OptionID int
)

// ErrNotFound sinaliza registro ausente nos repositórios.
var ErrNotFound = errors.New("registro nao encontrado")

// Vote é uma votação publicada: título, opções fixas e referências opcionais a artefatos externos.
type Vote struct {
	ID          VoteID       `json:"id"`
	Title       string       `json:"title"`
	PDFFilename string       `json:"pdfFilename,omitempty"`
	OBJFilename string       `json:"objFilename,omitempty"`
	GLBFilename string       `json:"glbFilename,omitempty"`
	Options     []Option     `json:"options"`
	TotalVotes  int64        `json:"totalVotes"`
	Reasons     []Annotation `json:"reasons"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type Option struct {
	ID     OptionID `json:"id"`
	Text   string   `json:"text"`
	Reason string   `json:"reason,omitempty"`
	Votes  int64    `json:"votes"`
}

// Annotation é a justificativa livre registrada junto de cada voto aceito.
type Annotation struct {
	UserID   string   `json:"userId"`
	OptionID OptionID `json:"optionId"`
	Reason   string   `json:"reason"`
}

type NewVote struct {
	Title       string        `json:"title"`
	Options     []OptionInput `json:"options"`
	PDFFilename string        `json:"pdfFilename,omitempty"`
	OBJFilename string        `json:"objFilename,omitempty"`
	GLBFilename string        `json:"glbFilename,omitempty"`
}

type OptionInput struct {
	Text   string `json:"text"`
	Reason string `json:"reason,omitempty"`
}

// Ballot é o comprovante de um voto aceito; ID é um ULID gerado após a aceitação.
type Ballot struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	VoteID   VoteID    `json:"voteId"`
	OptionID OptionID  `json:"optionId"`
	Reason   string    `json:"reason"`
	CastAt   time.Time `json:"castAt"`
}

type Results struct {
	ID         VoteID         `json:"id"`
	Title      string         `json:"title"`
	TotalVotes int64          `json:"totalVotes"`
	Options    []OptionResult `json:"options"`
}

type OptionResult struct {
	ID         OptionID `json:"id"`
	Text       string   `json:"text"`
	Votes      int64    `json:"votes"`
	Percentage string   `json:"percentage"`
	Reason     string   `json:"reason,omitempty"`
}
