package brackets

import (
	"context"

	"github.com/Dosada05/weekly-finals/models"
)

type GenerateBracketParams struct {
	Phase        *models.Phase
	Participants []*models.PhaseParticipant
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}
