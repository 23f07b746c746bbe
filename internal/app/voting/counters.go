package voting

import (
	"fmt"

	"github.com/marcelojr/votacao-3d/internal/domain"
)

func CounterKeyTotal(id domain.VoteID) string {
	return fmt.Sprintf("votacao:%d:total", id)
}

func CounterKeyOption(voteID domain.VoteID, optionID domain.OptionID) string {
	return fmt.Sprintf("votacao:%d:opcao:%d", voteID, optionID)
}
