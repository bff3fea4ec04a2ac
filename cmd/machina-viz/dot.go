package main

import (
	"fmt"
	"strings"

	"github.com/petrijr/machina"
)

// renderDOT emits a Graphviz digraph for def. Output order follows the
// definition, so rendering is deterministic for a given file.
func renderDOT(def machina.Definition) string {
	var b strings.Builder

	fmt.Fprintf(&b, "digraph %q {\n", def.Name)
	b.WriteString("\trankdir=LR;\n")
	b.WriteString("\tnode [shape=circle];\n")

	for _, s := range def.Terminal {
		fmt.Fprintf(&b, "\t%q [shape=doublecircle];\n", string(s))
	}

	if def.Initial != machina.None {
		b.WriteString("\t__start [shape=point];\n")
		fmt.Fprintf(&b, "\t__start -> %q;\n", string(def.Initial))
	}

	for _, ev := range def.Events {
		for _, td := range ev.Transitions {
			label := string(ev.Name)
			if len(td.Guards) > 0 {
				label += " [guarded]"
			}
			for _, from := range td.From {
				src := string(from)
				if from == machina.AnyState {
					src = "any"
				}
				fmt.Fprintf(&b, "\t%q -> %q [label=%q];\n", src, string(td.To), label)
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}
