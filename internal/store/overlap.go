package store

// Overlaps reports whether two ranges touch the same file on intersecting
// lines. Both intervals are closed.
func Overlaps(a, b ChangedFileRange) bool {
	if a.Path != b.Path {
		return false
	}
	return a.StartLine <= b.EndLine && a.EndLine >= b.StartLine
}

// FindOverlapping returns the manifestos that have at least one stored range
// overlapping at least one candidate range. Each manifesto appears at most
// once, in input order.
func FindOverlapping(candidates []ChangedFileRange, manifestos []Manifesto) []Manifesto {
	var matches []Manifesto
	for _, m := range manifestos {
		if anyOverlap(candidates, m.ChangedFiles) {
			matches = append(matches, m)
		}
	}
	return matches
}

func anyOverlap(candidates, stored []ChangedFileRange) bool {
	for _, c := range candidates {
		for _, s := range stored {
			if Overlaps(c, s) {
				return true
			}
		}
	}
	return false
}
