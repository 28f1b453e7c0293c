package models

import "strings"

// colorCodePrefix starts a legacy formatting code such as "§a" or "§l".
const colorCodePrefix = '§'

// StripColorCodes removes legacy formatting codes from a server name or MOTD.
func StripColorCodes(s string) string {
	if !strings.ContainsRune(s, colorCodePrefix) {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	skip := false
	for _, r := range s {
		switch {
		case skip:
			skip = false
		case r == colorCodePrefix:
			skip = true
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
