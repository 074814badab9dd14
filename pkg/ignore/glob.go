package ignore

// globMatch implements the rule glob dialect:
//
//	*   any run of characters, empty included, within one segment
//	**  any run of characters across segment boundaries
//	?   exactly one character, never a separator
//
// The matcher recurses over (pattern pos, string pos) pairs. Star
// branches re-visit the same pair for every consumption length, which is
// exponential on adversarial patterns, so visited pairs are memoized and
// the worst case stays polynomial.
func globMatch(pattern, s string) bool {
	type state struct{ pi, si int }
	memo := make(map[state]bool)

	var match func(pi, si int) bool
	match = func(pi, si int) bool {
		if pi == len(pattern) {
			return si == len(s)
		}
		k := state{pi, si}
		if res, ok := memo[k]; ok {
			return res
		}
		res := false

		switch c := pattern[pi]; c {
		case '*':
			if pi+1 < len(pattern) && pattern[pi+1] == '*' {
				next := pi + 2
				// "**/" also stands for zero segments
				if next < len(pattern) && pattern[next] == '/' && match(next+1, si) {
					res = true
					break
				}
				for j := si; j <= len(s); j++ {
					if match(next, j) {
						res = true
						break
					}
				}
				break
			}
			for j := si; ; j++ {
				if match(pi+1, j) {
					res = true
					break
				}
				if j >= len(s) || s[j] == '/' {
					break
				}
			}
		case '?':
			res = si < len(s) && s[si] != '/' && match(pi+1, si+1)
		default:
			res = si < len(s) && s[si] == c && match(pi+1, si+1)
		}

		memo[k] = res
		return res
	}
	return match(0, 0)
}
