package services

import (
	"strings"

	"github.com/jayeworks/circledesk/internal/models"
)

// Keyword tables checked in priority order: auth wins over code, code wins
// over tool. Order inside a table does not matter; order between tables does.
var (
	authKeywords = []string{"login", "auth", "password", "sign in", "signin", "account"}
	codeKeywords = []string{"error", "bug", "exception", "crash", "function", "method", "class", "component"}
	toolKeywords = []string{"tool", "cli", "command", "script", "automation", "workflow"}
)

// ClassifySegment maps an issue title and body to a segment using keyword
// heuristics. The first matching category wins; text matching no category
// falls through to misc.
func ClassifySegment(title, body string) models.Segment {
	fullText := strings.ToLower(title + " " + body)

	if containsAny(fullText, authKeywords) {
		return models.SegmentAuth
	}
	if containsAny(fullText, codeKeywords) {
		return models.SegmentCode
	}
	if containsAny(fullText, toolKeywords) {
		return models.SegmentTool
	}
	return models.SegmentMisc
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
