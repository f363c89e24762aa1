package merge

// change is a contiguous edit against the base: the lines in
// [baseStart, baseEnd) are replaced by newLines. A pure insertion has
// baseStart == baseEnd.
type change struct {
	baseStart int
	baseEnd   int
	newLines  []string
}

// lineDiff computes the ordered edit regions that turn a into b, derived from
// the longest common subsequence of the two line slices.
func lineDiff(a, b []string) []change {
	m, n := len(a), len(b)

	// dp[i][j] = LCS length of a[i:] and b[j:], flattened row-major.
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

	var changes []change
	var cur *change

	flush := func() {
		if cur != nil {
			changes = append(changes, *cur)
			cur = nil
		}
	}
	edit := func(i int) *change {
		if cur == nil {
			cur = &change{baseStart: i, baseEnd: i}
		}
		return cur
	}

	i, j := 0, 0
	for i < m && j < n {
		if a[i] == b[j] {
			flush()
			i++
			j++
		} else if dp[(i+1)*stride+j] >= dp[i*stride+j+1] {
			// a[i] deleted
			c := edit(i)
			c.baseEnd = i + 1
			i++
		} else {
			// b[j] inserted
			c := edit(i)
			c.newLines = append(c.newLines, b[j])
			j++
		}
	}
	for i < m {
		c := edit(i)
		c.baseEnd = i + 1
		i++
	}
	for j < n {
		c := edit(i)
		c.newLines = append(c.newLines, b[j])
		j++
	}
	flush()

	return changes
}

// overlaps reports whether two edit regions touch a common base interval.
// Zero-width insertions at the same position do not overlap.
func overlaps(a, b change) bool {
	return a.baseStart < b.baseEnd && b.baseStart < a.baseEnd
}
