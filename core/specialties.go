package core

import "strings"

// ParseSpecialties splits a comma-delimited specialty string into its trimmed,
// non-empty entries. This is the only place the stored string form is turned
// into a list; datastore adapters call it when reading legacy documents.
func ParseSpecialties(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinSpecialties renders a specialty list in its comma-delimited string form.
func JoinSpecialties(specialties []string) string {
	return strings.Join(specialties, ",")
}
