package gram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDump_IncludesRuleNamesAndModifiers(t *testing.T) {
	g, err := Parse("t", []byte(`r : s; s discard : "x";`))
	require.NoError(t, err)

	out := Dump(g)
	assert.Contains(t, out, "r :")
	assert.Contains(t, out, "s discard :")
}

func TestDumpRule_RendersElementTree(t *testing.T) {
	g, err := Parse("t", []byte(`r : "a" | [0-9]+;`))
	require.NoError(t, err)

	out := DumpRule(g.Rules["r"])
	assert.Contains(t, out, "Rule")
	assert.Contains(t, out, "r")
}
