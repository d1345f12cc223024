package supabase

import (
	"strings"

	"github.com/lib/pq"
)

type procedure struct {
	params []string
}

// fallbackProcedures lists the procedures that may run over SQL when the REST
// call fails. Parameters bind in the declared order; missing ones bind NULL.
var fallbackProcedures = map[string]procedure{
	"get_phase_standings":          {params: []string{"p_phase_id"}},
	"get_tournament_leaderboard":   {params: []string{"p_tournament_id", "p_limit"}},
	"increment_participant_points": {params: []string{"p_participant_id", "p_points"}},
	"close_phase":                  {params: []string{"p_phase_id"}},
}

// HasFallback reports whether name can run over the SQL path.
func HasFallback(name string) bool {
	_, ok := fallbackProcedures[name]
	return ok
}

func (p procedure) statement(name string, params Record) (string, []any) {
	b := &sqlBuilder{}
	placeholders := make([]string, len(p.params))
	for i, param := range p.params {
		placeholders[i] = b.arg(params[param])
	}
	b.WriteString("SELECT * FROM " + pq.QuoteIdentifier(name) + "(" + strings.Join(placeholders, ", ") + ")")
	return b.String(), b.args
}
