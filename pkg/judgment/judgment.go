// Package judgment pulls structured metadata out of the plain text of an
// Indian court judgment.
package judgment

import (
	"regexp"
	"strings"
)

// NotFound marks a field the text did not contain.
const NotFound = "Not Found"

// Metadata is what Extract finds in a judgment.
type Metadata struct {
	CourtName    string   `json:"court_name"`
	JudgmentDate string   `json:"judgment_date"`
	JudgmentYear string   `json:"judgment_year"`
	CaseName     string   `json:"case_name"`
	Judges       string   `json:"judges"`
	CaseNumbers  []string `json:"case_numbers"`
	Citations    []string `json:"citations"`
}

var (
	dateRe       = regexp.MustCompile(`DATE OF JUDGMENT:\s*(\d{2}/\d{2}/\d{4})`)
	petitionerRe = regexp.MustCompile(`(?s)PETITIONER:\s*(.*?)\s+Vs\.`)
	respondentRe = regexp.MustCompile(`RESPONDENT:\s*(.*?)\n`)
	benchRe      = regexp.MustCompile(`BENCH:\s*(.+?)\n`)
	caseRe       = regexp.MustCompile(`(?i)(Writ|Civil|Criminal)[\s\S]*?(?:Petition|Appeal)[^\d]*(\d+/?\d+)`)
	citationRe   = regexp.MustCompile(`\b(?:JT|SCC|AIR|SCR|SCALE|LLJ)[^\n]+`)
)

// Extract reads judgment metadata from text. Missing scalar fields are
// NotFound; missing lists are empty. Lists keep first-seen order without
// duplicates.
func Extract(text string) Metadata {
	m := Metadata{
		CourtName:    NotFound,
		JudgmentDate: NotFound,
		JudgmentYear: NotFound,
		CaseName:     NotFound,
		Judges:       NotFound,
		CaseNumbers:  []string{},
		Citations:    []string{},
	}

	if strings.Contains(strings.ToUpper(text), "SUPREME COURT OF INDIA") {
		m.CourtName = "Supreme Court of India"
	}

	if match := dateRe.FindStringSubmatch(text); match != nil {
		m.JudgmentDate = match[1]
		m.JudgmentYear = match[1][strings.LastIndex(match[1], "/")+1:]
	}

	pet := petitionerRe.FindStringSubmatch(text)
	resp := respondentRe.FindStringSubmatch(text)
	if pet != nil && resp != nil {
		m.CaseName = strings.TrimSpace(pet[1]) + " vs " + strings.TrimSpace(resp[1])
	}

	var judges []string
	for _, match := range benchRe.FindAllStringSubmatch(text, -1) {
		judges = append(judges, strings.TrimSpace(match[1]))
	}
	if judges = unique(judges); len(judges) > 0 {
		m.Judges = strings.Join(judges, ", ")
	}

	for _, match := range caseRe.FindAllStringSubmatch(text, -1) {
		m.CaseNumbers = append(m.CaseNumbers, match[1]+" Petition No. "+match[2])
	}

	var citations []string
	for _, c := range citationRe.FindAllString(text, -1) {
		citations = append(citations, strings.TrimSpace(c))
	}
	m.Citations = append(m.Citations, unique(citations)...)

	return m
}

func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
