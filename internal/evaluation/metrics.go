package evaluation

// RecallAtK is the fraction of relevant keys present in the first k
// retrieved keys. No relevant keys scores 0.
func RecallAtK(relevant, retrieved []string, k int) float64 {
	if len(relevant) == 0 {
		return 0.0
	}

	want := keySet(relevant)
	found := 0
	for _, key := range head(retrieved, k) {
		if _, ok := want[key]; ok {
			found++
			delete(want, key)
		}
	}
	return float64(found) / float64(len(relevant))
}

// MRRAtK is the reciprocal rank of the first relevant key within the first
// k retrieved keys, or 0 when none appears.
func MRRAtK(relevant, retrieved []string, k int) float64 {
	want := keySet(relevant)
	for i, key := range head(retrieved, k) {
		if _, ok := want[key]; ok {
			return 1.0 / float64(i+1)
		}
	}
	return 0.0
}

func keySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func head(keys []string, k int) []string {
	if k >= 0 && k < len(keys) {
		return keys[:k]
	}
	return keys
}
