package gram

import (
	"fmt"
	"strings"

	"github.com/alecthomas/repr"
)

// Dump renders g the way the original implementation's print_rules_debug
// did, but through repr so the structure is unambiguous (quantifiers,
// modifiers, nested groups) instead of a flattened token stream.
func Dump(g *Grammar) string {
	var b strings.Builder
	for _, name := range g.Order {
		rule := g.Rules[name]
		fmt.Fprintf(&b, "%s", rule.Name)
		if rule.Modifier != "" {
			fmt.Fprintf(&b, " %s", rule.Modifier)
		}
		b.WriteString(" :\n")
		b.WriteString(repr.String(rule.Alts, repr.Indent("  ")))
		b.WriteString("\n\n")
	}
	return b.String()
}

// DumpRule renders a single rule's element tree with repr, useful when
// debugging one rule at a time. The CLI's --dump-grammar uses Dump, not
// this function.
func DumpRule(r *Rule) string {
	return repr.String(r, repr.Indent("  "))
}
