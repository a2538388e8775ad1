package pathpolicy

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestAssertContainedAcceptsRootAndChildren(t *testing.T) {
	p, err := New(afero.NewMemMapFs(), "/proj")
	require.NoError(t, err)
	require.NoError(t, p.AssertContained("/proj"))
	require.NoError(t, p.AssertContained("/proj/a/b.json"))
}

func TestAssertContainedRejectsEscapes(t *testing.T) {
	p, err := New(afero.NewMemMapFs(), "/proj")
	require.NoError(t, err)
	require.Error(t, p.AssertContained("/proj/../secret"))
	require.Error(t, p.AssertContained("/other"))
}

func TestAssertContainedRejectsPrefixCollision(t *testing.T) {
	p, err := New(afero.NewMemMapFs(), "/proj")
	require.NoError(t, err)
	require.Error(t, p.AssertContained("/proj-other/x"))
}

func TestCanonicalizeAndAssertResolvesRelativeToBase(t *testing.T) {
	p, err := New(afero.NewMemMapFs(), "/proj")
	require.NoError(t, err)
	out, err := p.CanonicalizeAndAssert("/proj/sub", "../other.ts")
	require.NoError(t, err)
	require.Equal(t, "/proj/other.ts", out)

	_, err = p.CanonicalizeAndAssert("/proj", "../../escape.ts")
	require.Error(t, err)
}
