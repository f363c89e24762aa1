package merge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeShortCircuits(t *testing.T) {
	cases := []struct {
		name                string
		base, local, remote string
		want                string
	}{
		{"local equals remote", "base", "same", "same", "same"},
		{"local unchanged", "base", "base", "remote edit", "remote edit"},
		{"remote unchanged", "base", "local edit", "base", "local edit"},
		{"all equal", "x", "x", "x", "x"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, conflicts, err := Merge(tc.base, tc.local, tc.remote)
			require.NoError(t, err)
			require.Empty(t, conflicts)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMergeDisjointEdits(t *testing.T) {
	base := "A\nB\nC"
	local := "A\nB2\nC"
	remote := "A\nB\nC2"

	got, conflicts, err := Merge(base, local, remote)
	require.NoError(t, err)
	require.Empty(t, conflicts)
	assert.Equal(t, "A\nB2\nC2", got)
}

func TestMergeIdenticalChangeIsNotConflict(t *testing.T) {
	base := "A\nB\nC"
	local := "A2\nB\nC3"
	remote := "A2\nB\nC"

	got, conflicts, err := Merge(base, local, remote)
	require.NoError(t, err)
	require.Empty(t, conflicts)
	assert.Equal(t, "A2\nB\nC3", got)
}

func TestMergeConflictRegion(t *testing.T) {
	base := "A\nB\nC"
	local := "A\nL\nC"
	remote := "A\nR\nC"

	got, conflicts, err := Merge(base, local, remote)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.Len(t, conflicts, 1)

	c := conflicts[0]
	assert.Equal(t, []string{"B"}, c.BaseLines)
	assert.Equal(t, []string{"L"}, c.LocalLines)
	assert.Equal(t, []string{"R"}, c.RemoteLines)
	assert.Equal(t, 1, c.StartLine)
}

func TestMergeDeleteVsEditConflicts(t *testing.T) {
	base := "A\nB\nC"
	local := "A\nC"
	remote := "A\nB2\nC"

	_, conflicts, err := Merge(base, local, remote)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, []string{"B"}, conflicts[0].BaseLines)
	assert.Empty(t, conflicts[0].LocalLines)
	assert.Equal(t, []string{"B2"}, conflicts[0].RemoteLines)
}

// Two pure insertions at the same position are a known limitation of the
// merge walk: neither side is applied and the base content stands.
func TestMergeSamePositionInsertsCollapseToBase(t *testing.T) {
	base := "A\nB"
	local := "A\nX\nB"
	remote := "A\nY\nB"

	got, conflicts, err := Merge(base, local, remote)
	require.NoError(t, err)
	require.Empty(t, conflicts)
	assert.Equal(t, base, got)
}

func TestMergeMultipleRegions(t *testing.T) {
	base := "1\n2\n3\n4\n5\n6\n7\n8"
	local := "1\nL2\n3\n4\n5\n6\nL7\n8" // edits lines 2 and 7
	remote := "1\n2\n3\nR4\n5\n6\n7\n8" // edits line 4

	got, conflicts, err := Merge(base, local, remote)
	require.NoError(t, err)
	require.Empty(t, conflicts)
	assert.Equal(t, "1\nL2\n3\nR4\n5\n6\nL7\n8", got)
}

func TestMergeLineLimit(t *testing.T) {
	big := strings.Repeat("x\n", MaxLines) + "x"

	_, _, err := Merge(big, "a", "b")
	assert.ErrorIs(t, err, ErrTooManyLines)

	_, _, err = Merge("a", big, "b")
	assert.ErrorIs(t, err, ErrTooManyLines)
}

func TestMergeSizeLimit(t *testing.T) {
	big := strings.Repeat("x", MaxContentBytes+1)

	_, _, err := Merge("a", "b", big)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCommonBase(t *testing.T) {
	assert.Equal(t, "A\nC", CommonBase("A\nB2\nC", "A\nB\nC"))
	assert.Equal(t, "A\nB\nC", CommonBase("A\nB\nC", "A\nB\nC"))
	assert.Equal(t, "", CommonBase("x", "y"))
}

func TestCommonBaseUpperBound(t *testing.T) {
	cases := [][2]string{
		{"A\nB\nC", "A\nC"},
		{"x", "y"},
		{"", ""},
		{"a\nb\nc\nd", "d\nc\nb\na"},
	}
	for _, tc := range cases {
		got := CommonBase(tc[0], tc[1])
		gotLines := len(strings.Split(got, "\n"))
		a := len(strings.Split(tc[0], "\n"))
		b := len(strings.Split(tc[1], "\n"))
		assert.LessOrEqual(t, gotLines, min(a, b), "common base of %q and %q", tc[0], tc[1])
	}
}

func TestCommonBaseOverLimitIsEmpty(t *testing.T) {
	big := strings.Repeat("x\n", MaxLines) + "x"
	assert.Equal(t, "", CommonBase(big, "a"))
}
