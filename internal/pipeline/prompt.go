package pipeline

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ppiankov/honorscan/internal/model"
)

const initialTemplate = `Was the 30 Under 30 honoree %s ever the target (not the initiator) of a lawsuit, ` +
	`being sued, a scandal, or a controversy? If so, answer with a short description of what happened ` +
	`and when. If not, print the string "N/A" and nothing else.`

const confirmTemplate = `The following text was returned when asking whether %s was the target of a lawsuit, ` +
	`scandal, or controversy:

%s

Does this text describe a genuine lawsuit, scandal, or controversy in which %s was the target ` +
	`rather than the initiator? Answer strictly YES or NO.`

// InitialPrompt builds the first-stage question for a row
func InitialPrompt(rec model.HonoreeRecord) string {
	return fmt.Sprintf(initialTemplate, rec.Identifier())
}

// ConfirmPrompt builds the strict yes/no question over a first-stage answer
func ConfirmPrompt(rec model.HonoreeRecord, initial string) string {
	id := rec.Identifier()
	return fmt.Sprintf(confirmTemplate, id, initial, id)
}

// SearchQueries returns web search queries for researching a person by hand
func SearchQueries(name, company string) []string {
	return []string{
		fmt.Sprintf(`"%s" "%s" arrested`, name, company),
		fmt.Sprintf(`"%s" "%s" convicted fraud`, name, company),
		fmt.Sprintf(`"%s" "%s" sentenced prison`, name, company),
		fmt.Sprintf(`"%s" "%s" criminal charges`, name, company),
		fmt.Sprintf(`"%s" "%s" lawsuit sued controversy scandal`, name, company),
		fmt.Sprintf(`site:justice.gov "%s"`, name),
		fmt.Sprintf(`site:sec.gov "%s"`, name),
	}
}

// SearchURL returns a web search link for query
func SearchURL(query string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(strings.TrimSpace(query))
}
