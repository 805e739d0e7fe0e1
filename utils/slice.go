package utils

// UniqueStrings removes duplicates and empty values, keeping first occurrence order.
func UniqueStrings(slice []string) []string {
	seen := make(map[string]bool, len(slice))
	list := make([]string, 0, len(slice))
	for _, entry := range slice {
		if entry == "" || seen[entry] {
			continue
		}
		seen[entry] = true
		list = append(list, entry)
	}
	return list
}
