package model

import "time"

// ProgressState holds the counters of a long-running enrichment job
type ProgressState struct {
	TotalRows       int       `json:"total_rows"`
	ProcessedCount  int       `json:"processed_count"`
	FraudFoundCount int       `json:"fraud_found_count"`
	LastUpdated     time.Time `json:"last_updated"`
}

// ResultLog is the append-only record of findings across runs
type ResultLog struct {
	FraudCases     []FraudCase     `json:"fraud_cases"`
	UncertainCases []UncertainCase `json:"uncertain_cases"`
}

// FraudCase is a confirmed controversy for one honoree
type FraudCase struct {
	RunID            string      `json:"run_id,omitempty"`
	Row              int         `json:"row"`
	Name             string      `json:"name"`
	Year             int         `json:"year"`
	Company          string      `json:"company"`
	FraudDescription string      `json:"fraud_description"`
	Source           string      `json:"source"`               // Model that produced the description
	QueryUsed        string      `json:"query_used,omitempty"` // Prompt sent for the initial query
	Confidence       string      `json:"confidence,omitempty"` // Keyword tier: high, medium, none
	Indicators       []string    `json:"indicators,omitempty"` // Keywords that matched
	Citations        []SourceRef `json:"citations,omitempty"`  // Grounding pages behind the description
	Timestamp        time.Time   `json:"timestamp"`
}

// UncertainCase flags a row for manual review
type UncertainCase struct {
	RunID     string    `json:"run_id,omitempty"`
	Row       int       `json:"row"`
	Name      string    `json:"name"`
	Year      int       `json:"year"`
	Company   string    `json:"company"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// SourceTier ranks how authoritative a cited web page is
type SourceTier string

const (
	TierPrimary   SourceTier = "primary"   // courts, regulators, prosecutors
	TierSecondary SourceTier = "secondary" // established news outlets
	TierTertiary  SourceTier = "tertiary"  // everything else
)

// SourceRef is one cited page with its authority tier
type SourceRef struct {
	URL  string     `json:"url"`
	Tier SourceTier `json:"tier"`
}
