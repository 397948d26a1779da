package core

import (
	"fmt"
	"strings"
)

// Briefs are the four accumulated transcripts of a trial. They are a view
// over the recorded rounds and are never stored on their own.
type Briefs struct {
	Defense             string `json:"defense"`
	Prosecution         string `json:"prosecution"`
	DefenseStrategy     string `json:"defense_strategy"`
	ProsecutionStrategy string `json:"prosecution_strategy"`
	Rounds              int    `json:"rounds"`
}

// BuildBriefs concatenates each field of every round, in round order, as
// "\nRound N: <text>\n".
func BuildBriefs(rounds []Round) Briefs {
	var d, p, ds, ps strings.Builder
	for _, r := range rounds {
		writeEntry(&d, r.Number, r.DefenseArgument)
		writeEntry(&p, r.Number, r.ProsecutionArgument)
		writeEntry(&ds, r.Number, r.DefenseStrategy)
		writeEntry(&ps, r.Number, r.ProsecutionStrategy)
	}
	return Briefs{
		Defense:             d.String(),
		Prosecution:         p.String(),
		DefenseStrategy:     ds.String(),
		ProsecutionStrategy: ps.String(),
		Rounds:              len(rounds),
	}
}

func writeEntry(b *strings.Builder, n int, text string) {
	fmt.Fprintf(b, "\nRound %d: %s\n", n, text)
}

// Empty reports whether no round has been recorded.
func (b Briefs) Empty() bool {
	return b.Rounds == 0
}
