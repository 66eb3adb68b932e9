package planner

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/wbrown/janus-traversal/traversal/fragment"
)

// Traversal is the planner's output: one ordered fragment list per disjunct
// of the planned pattern
type Traversal struct {
	Plans [][]fragment.Fragment
}

// clone copies the plan slices so callers can reorder or truncate them
// without touching the cached original. Fragments themselves are immutable.
func (t *Traversal) clone() *Traversal {
	out := &Traversal{Plans: make([][]fragment.Fragment, len(t.Plans))}
	for i, plan := range t.Plans {
		out.Plans[i] = append([]fragment.Fragment(nil), plan...)
	}
	return out
}

// Fragments returns the total number of fragments across all plans
func (t *Traversal) Fragments() int {
	n := 0
	for _, plan := range t.Plans {
		n += len(plan)
	}
	return n
}

// String renders every plan on its own line: { f1; f2; ... }
func (t *Traversal) String() string {
	var sb strings.Builder
	for i, plan := range t.Plans {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("{ ")
		for j, f := range plan {
			if j > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(f.String())
		}
		sb.WriteString(" }")
	}
	return sb.String()
}

// Explain writes the plans as a markdown table
func (t *Traversal) Explain(w io.Writer) error {
	columns := []string{"plan", "step", "fragment", "kind", "cost", "binds"}
	alignment := make([]tw.Align, len(columns))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(columns)

	for i, plan := range t.Plans {
		for j, f := range plan {
			binds := string(f.Start())
			if end, ok := f.End(); ok {
				binds = string(end)
			}
			if err := table.Append([]string{
				fmt.Sprintf("%d", i),
				fmt.Sprintf("%d", j+1),
				f.String(),
				f.Kind().String(),
				fmt.Sprintf("%.3f", f.Cost()),
				binds,
			}); err != nil {
				return err
			}
		}
	}
	return table.Render()
}
