package brackets

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Dosada05/weekly-finals/models"
)

var (
	ErrInvalidWeeks        = errors.New("total weeks must be at least 1")
	ErrInvalidParticipants = errors.New("initial and finals participants must be positive")
	ErrFinalsExceedInitial = errors.New("finals participants cannot exceed initial participants")
)

const (
	phaseLength = 7
	// floor() guard against float error on exact integral products.
	progressionEpsilon = 1e-9
)

var phaseNames = map[int]string{
	1: "Open Qualifiers",
	2: "Challenger Week",
	3: "Contender Week",
	4: "Championship Week",
}

// PhaseName returns the display name for a 1-based phase number.
func PhaseName(number int) string {
	if name, ok := phaseNames[number]; ok {
		return name
	}
	return fmt.Sprintf("Week %d", number)
}

// ComputeProgression returns the participant cap of every phase. Caps decay
// geometrically from initial towards finals and never drop below finals.
func ComputeProgression(initial, finals, phases int) []int {
	if phases <= 1 {
		return []int{initial}
	}

	caps := make([]int, phases)
	caps[0] = initial
	if initial <= 0 || finals <= 0 {
		for i := range caps {
			caps[i] = initial
		}
		return caps
	}

	ratio := math.Pow(float64(finals)/float64(initial), 1/float64(phases-1))
	for i := 1; i < phases; i++ {
		next := int(math.Floor(float64(caps[i-1])*ratio + progressionEpsilon))
		if next < finals {
			next = finals
		}
		caps[i] = next
	}
	return caps
}

func ValidateConfig(cfg models.WeeklyFinalsConfig) error {
	if cfg.TotalWeeks < 1 {
		return ErrInvalidWeeks
	}
	if cfg.InitialParticipants <= 0 || cfg.FinalsParticipants <= 0 {
		return ErrInvalidParticipants
	}
	if cfg.FinalsParticipants > cfg.InitialParticipants {
		return ErrFinalsExceedInitial
	}
	return nil
}

// PlanPhases builds the unsaved phases of a tournament. Phase i runs for
// seven days starting (i-1)*7 days after now; the last phase is the finals.
func PlanPhases(tournamentID int, cfg models.WeeklyFinalsConfig, now time.Time) ([]models.Phase, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	progression := ComputeProgression(cfg.InitialParticipants, cfg.FinalsParticipants, cfg.TotalWeeks)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	phases := make([]models.Phase, 0, cfg.TotalWeeks)
	for i := 1; i <= cfg.TotalWeeks; i++ {
		last := i == cfg.TotalWeeks

		phaseType := models.PhaseTypeElimination
		advancement := 0
		if last {
			phaseType = models.PhaseTypeFinals
			advancement = cfg.FinalsParticipants
		} else {
			advancement = progression[i]
		}
		maxParticipants := progression[i-1]

		phases = append(phases, models.Phase{
			TournamentID:     tournamentID,
			PhaseNumber:      i,
			Name:             PhaseName(i),
			Type:             phaseType,
			StartDate:        day.AddDate(0, 0, (i-1)*phaseLength),
			EndDate:          day.AddDate(0, 0, i*phaseLength-1),
			MaxParticipants:  maxParticipants,
			AdvancementSlots: advancement,
			EliminationSlots: maxParticipants - advancement,
			Status:           models.PhaseStatusUpcoming,
		})
	}
	return phases, nil
}
