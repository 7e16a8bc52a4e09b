package oemref

// Deduplicate collapses refs to one formatted representative per normalized
// value. The first occurrence wins and output keeps first-seen order; refs
// that normalize to "" are dropped.
func Deduplicate(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	unique := make([]string, 0, len(refs))

	for _, ref := range refs {
		normalized := Normalize(ref)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		unique = append(unique, Format(ref))
	}

	return unique
}
