package analytics

import "unicode/utf8"

var badgePalette = []string{
	"#3b82f6", // blue
	"#ec4899", // pink
	"#10b981",
	"#f59e0b",
	"#8b5cf6",
	"#ef4444",
}

// BadgeColor picks a stable colour for a calendar initial. "A" is blue.
func BadgeColor(initial string) string {
	r, _ := utf8.DecodeRuneInString(initial)
	if r == utf8.RuneError || r < 'A' {
		return badgePalette[1]
	}
	return badgePalette[int(r-'A')%len(badgePalette)]
}

// BadgeColors maps every initial present in cal to its colour.
func BadgeColors(cal Calendar) map[string]string {
	colors := make(map[string]string)
	for _, initials := range cal {
		for _, i := range initials {
			colors[i] = BadgeColor(i)
		}
	}
	return colors
}
