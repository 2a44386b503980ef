package classifier

import "strings"

var suspiciousKeywords = []string{"bomb", "terror", "attack", "gun", "explosive", "threat", "kill", "murder"}

// Suspicious - содержит ли текст слова, требующие внимания модератора.
// Только информирует, на флаги инцидента не влияет.
func Suspicious(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range suspiciousKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
