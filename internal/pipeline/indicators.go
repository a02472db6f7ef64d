package pipeline

import "strings"

// Confidence tiers of a keyword analysis
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceNone   = "none"
)

var highConfidence = []string{
	"sentenced", "convicted", "guilty", "prison", "pleaded guilty",
	"federal prison", "years in prison", "months in prison",
}

var mediumConfidence = []string{
	"indicted", "charged", "arrested", "sec charges", "fraud allegations",
	"criminal charges", "wire fraud", "securities fraud", "bank fraud",
}

// AnalyzeIndicators scans text for fraud keywords and returns the highest
// matching tier with the keywords of that tier that were found.
func AnalyzeIndicators(text string) (string, []string) {
	lower := strings.ToLower(text)

	if found := matchKeywords(lower, highConfidence); len(found) > 0 {
		return ConfidenceHigh, found
	}
	if found := matchKeywords(lower, mediumConfidence); len(found) > 0 {
		return ConfidenceMedium, found
	}
	return ConfidenceNone, nil
}

func matchKeywords(text string, keywords []string) []string {
	var found []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			found = append(found, kw)
		}
	}
	return found
}
