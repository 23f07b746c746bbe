package voting

import (
	"strconv"

	"github.com/marcelojr/votacao-3d/internal/domain"
)

const zeroPercentage = "0.00"

// tally calcula o percentual de cada opção com duas casas; sem votos, todas ficam em "0.00".
func tally(v *domain.Vote) domain.Results {
	options := make([]domain.OptionResult, len(v.Options))
	for i, opt := range v.Options {
		options[i] = domain.OptionResult{
			ID:         opt.ID,
			Text:       opt.Text,
			Votes:      opt.Votes,
			Percentage: percentage(opt.Votes, v.TotalVotes),
			Reason:     opt.Reason,
		}
	}

	return domain.Results{
		ID:         v.ID,
		Title:      v.Title,
		TotalVotes: v.TotalVotes,
		Options:    options,
	}
}

func percentage(votes, total int64) string {
	if total == 0 {
		return zeroPercentage
	}
	return strconv.FormatFloat(float64(votes)/float64(total)*100, 'f', 2, 64)
}
