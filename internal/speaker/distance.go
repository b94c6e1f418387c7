package speaker

// Distance returns the Levenshtein edit distance between a and b over Unicode code points.
// Insertion, deletion and substitution each cost 1.
func Distance(a, b string) int {
	source := []rune(a)
	target := []rune(b)

	if len(source) < len(target) {
		source, target = target, source
	}

	if len(target) == 0 {
		return len(source)
	}

	previous := make([]int, len(target)+1)
	current := make([]int, len(target)+1)

	for j := range previous {
		previous[j] = j
	}

	for i, sourceRune := range source {
		current[0] = i + 1

		for j, targetRune := range target {
			substitutionCost := 1
			if sourceRune == targetRune {
				substitutionCost = 0
			}

			current[j+1] = min(
				previous[j+1]+1,
				current[j]+1,
				previous[j]+substitutionCost,
			)
		}

		previous, current = current, previous
	}

	return previous[len(target)]
}
