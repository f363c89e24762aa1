// Package merge implements the line-based three-way merge used by both the
// sync client and the server's bulk document handler. Inputs are plain UTF-8
// text; the unit of comparison is the line.
package merge

import (
	"errors"
	"slices"
	"strings"
)

const (
	// MaxContentBytes caps each side of a merge.
	MaxContentBytes = 10 << 20

	// MaxLines caps each side after splitting on "\n". Bounds the LCS table
	// at roughly 16 MiB of cells.
	MaxLines = 2000
)

var (
	ErrTooLarge     = errors.New("merge: content exceeds size limit")
	ErrTooManyLines = errors.New("merge: content exceeds line limit")
)

// Conflict is a contiguous base span that local and remote changed differently.
type Conflict struct {
	BaseLines   []string `json:"base_lines"`
	LocalLines  []string `json:"local_lines"`
	RemoteLines []string `json:"remote_lines"`
	StartLine   int      `json:"start_line"`
}

// Merge combines local and remote relative to base. It returns the merged
// text, or a non-empty conflict list when both sides changed the same region
// differently. A non-nil error means the inputs exceeded the merge limits and
// no merge was attempted.
func Merge(base, local, remote string) (string, []Conflict, error) {
	if err := checkLimits(base, local, remote); err != nil {
		return "", nil, err
	}

	// Trivial agreements first.
	if local == remote {
		return local, nil, nil
	}
	if local == base {
		return remote, nil, nil
	}
	if remote == base {
		return local, nil, nil
	}

	baseLines := strings.Split(base, "\n")
	localDiff := lineDiff(baseLines, strings.Split(local, "\n"))
	remoteDiff := lineDiff(baseLines, strings.Split(remote, "\n"))

	var out []string
	var conflicts []Conflict

	bi, li, ri := 0, 0, 0
	for li < len(localDiff) || ri < len(remoteDiff) {
		bothLeft := li < len(localDiff) && ri < len(remoteDiff)

		if bothLeft && overlaps(localDiff[li], remoteDiff[ri]) {
			lc, rc := localDiff[li], remoteDiff[ri]
			start := min(lc.baseStart, rc.baseStart)
			end := max(lc.baseEnd, rc.baseEnd)

			for bi < start {
				out = append(out, baseLines[bi])
				bi++
			}

			if lc.baseStart == rc.baseStart && lc.baseEnd == rc.baseEnd && slices.Equal(lc.newLines, rc.newLines) {
				// Both sides made the identical change.
				out = append(out, lc.newLines...)
			} else {
				conflicts = append(conflicts, Conflict{
					BaseLines:   slices.Clone(baseLines[start:end]),
					LocalLines:  slices.Clone(lc.newLines),
					RemoteLines: slices.Clone(rc.newLines),
					StartLine:   start,
				})
			}

			if end > bi {
				bi = end
			}
			li++
			ri++
			continue
		}

		if bothLeft && localDiff[li].baseStart == remoteDiff[ri].baseStart {
			// Non-overlapping edits anchored at the same position: two pure
			// insertions (or an insertion racing a replacement). Neither side
			// wins; the base content stands.
			li++
			ri++
			continue
		}

		var c change
		switch {
		case !bothLeft && li < len(localDiff):
			c = localDiff[li]
			li++
		case !bothLeft && ri < len(remoteDiff):
			c = remoteDiff[ri]
			ri++
		case localDiff[li].baseStart < remoteDiff[ri].baseStart:
			c = localDiff[li]
			li++
		default:
			c = remoteDiff[ri]
			ri++
		}

		for bi < c.baseStart {
			out = append(out, baseLines[bi])
			bi++
		}
		out = append(out, c.newLines...)
		if c.baseEnd > bi {
			bi = c.baseEnd
		}
	}

	for bi < len(baseLines) {
		out = append(out, baseLines[bi])
		bi++
	}

	if len(conflicts) > 0 {
		return "", conflicts, nil
	}
	return strings.Join(out, "\n"), nil, nil
}

// CommonBase derives a synthetic base from two texts when no saved base is
// available: the longest common subsequence of their lines. Returns "" when
// the inputs exceed the merge limits, which degrades the subsequent 3-way
// merge to plain conflict reporting.
func CommonBase(local, remote string) string {
	if len(local) > MaxContentBytes || len(remote) > MaxContentBytes {
		return ""
	}

	a := strings.Split(local, "\n")
	b := strings.Split(remote, "\n")
	if len(a) > MaxLines || len(b) > MaxLines {
		return ""
	}

	m, n := len(a), len(b)
	stride := n + 1
	dp := make([]int32, (m+1)*stride)
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i*stride+j] = dp[(i+1)*stride+j+1] + 1
			} else {
				dp[i*stride+j] = max(dp[(i+1)*stride+j], dp[i*stride+j+1])
			}
		}
	}

	var common []string
	i, j := 0, 0
	for i < m && j < n {
		switch {
		case a[i] == b[j]:
			common = append(common, a[i])
			i++
			j++
		case dp[(i+1)*stride+j] >= dp[i*stride+j+1]:
			i++
		default:
			j++
		}
	}

	return strings.Join(common, "\n")
}

func checkLimits(sides ...string) error {
	for _, s := range sides {
		if len(s) > MaxContentBytes {
			return ErrTooLarge
		}
		if strings.Count(s, "\n")+1 > MaxLines {
			return ErrTooManyLines
		}
	}
	return nil
}
