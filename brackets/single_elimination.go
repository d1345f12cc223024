package brackets

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"sort"

	"github.com/Dosada05/weekly-finals/models"
)

var ErrNotEnoughParticipants = errors.New("not enough participants to generate a single elimination bracket (minimum 2)")

type BracketMatch struct {
	UID          string
	Round        int
	OrderInRound int

	Participant1ID *int
	Participant2ID *int

	SourceMatch1UID *string
	SourceMatch2UID *string

	IsPlaceholder bool

	IsBye            bool
	ByeParticipantID *int
}

type node struct {
	participantID    *int
	sourceMatchUID   *string
	isByePlaceholder bool
}

// SeededEliminationGenerator строит сетку на выбывание для финальной фазы.
// Участники расставляются по seeding_rank (1 против N, 2 против N-1 ...),
// недостающие места до степени двойки отдаются верхним посевам как bye.
type SeededEliminationGenerator struct{}

func NewSeededEliminationGenerator() BracketGenerator {
	return &SeededEliminationGenerator{}
}

func (g *SeededEliminationGenerator) GetName() string {
	return "SeededElimination"
}

// seedOrder returns bracket slot order for a power-of-two bracket, e.g.
// size 8 -> [1 8 4 5 2 7 3 6].
func seedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		n := len(order) * 2
		next := make([]int, 0, n)
		for _, s := range order {
			next = append(next, s, n+1-s)
		}
		order = next
	}
	return order
}

func (g *SeededEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	n := len(params.Participants)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seeded := make([]*models.PhaseParticipant, n)
	copy(seeded, params.Participants)
	sort.SliceStable(seeded, func(i, j int) bool {
		return seeded[i].SeedingRank < seeded[j].SeedingRank
	})

	numRounds := bits.Len(uint(n - 1))
	size := 1 << numRounds

	currentRoundNodes := make([]*node, 0, size)
	for _, seed := range seedOrder(size) {
		if seed > n {
			currentRoundNodes = append(currentRoundNodes, &node{isByePlaceholder: true})
			continue
		}
		pid := seeded[seed-1].ID
		currentRoundNodes = append(currentRoundNodes, &node{participantID: &pid})
	}

	matches := make([]*BracketMatch, 0, size-1)
	for r := 1; r <= numRounds; r++ {
		nextRoundNodes := make([]*node, 0, len(currentRoundNodes)/2)
		order := 0

		for i := 0; i+1 < len(currentRoundNodes); i += 2 {
			node1, node2 := currentRoundNodes[i], currentRoundNodes[i+1]
			if node1.isByePlaceholder && node2.isByePlaceholder {
				nextRoundNodes = append(nextRoundNodes, &node{isByePlaceholder: true})
				continue
			}

			order++
			uid := fmt.Sprintf("R%dM%d", r, order)
			bm := &BracketMatch{UID: uid, Round: r, OrderInRound: order}

			switch {
			case node1.participantID != nil && node2.isByePlaceholder:
				bm.IsBye = true
				bm.ByeParticipantID = node1.participantID
				bm.Participant1ID = node1.participantID
				nextRoundNodes = append(nextRoundNodes, &node{participantID: node1.participantID})
			case node2.participantID != nil && node1.isByePlaceholder:
				bm.IsBye = true
				bm.ByeParticipantID = node2.participantID
				bm.Participant1ID = node2.participantID
				nextRoundNodes = append(nextRoundNodes, &node{participantID: node2.participantID})
			default:
				bm.Participant1ID = node1.participantID
				bm.Participant2ID = node2.participantID
				bm.SourceMatch1UID = node1.sourceMatchUID
				bm.SourceMatch2UID = node2.sourceMatchUID
				bm.IsPlaceholder = node1.sourceMatchUID != nil || node2.sourceMatchUID != nil
				matchUID := uid
				nextRoundNodes = append(nextRoundNodes, &node{sourceMatchUID: &matchUID})
			}
			matches = append(matches, bm)
		}

		if len(nextRoundNodes) == 0 {
			return nil, fmt.Errorf("internal error: no nodes left after round %d of %d", r, numRounds)
		}
		currentRoundNodes = nextRoundNodes
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Round != matches[j].Round {
			return matches[i].Round < matches[j].Round
		}
		return matches[i].OrderInRound < matches[j].OrderInRound
	})
	return matches, nil
}
