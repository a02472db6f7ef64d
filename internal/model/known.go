package model

// KnownCase is a publicly documented controversy used to sanity-check results
type KnownCase struct {
	Name       string
	SearchYear int // 0 when the honoree may not be in the dataset
	Company    string
	Expected   string
}

// KnownCases returns the validation set
func KnownCases() []KnownCase {
	return []KnownCase{
		{
			Name:       "Charlie Javice",
			SearchYear: 2019,
			Company:    "Frank",
			Expected:   "Convicted wire/bank/securities fraud. Sentenced 85 months prison (2025)",
		},
		{
			Name:       "Sam Bankman-Fried",
			SearchYear: 2021,
			Company:    "FTX",
			Expected:   "Convicted fraud/conspiracy. Sentenced 25 years prison (2024)",
		},
		{
			Name:       "Caroline Ellison",
			SearchYear: 2022,
			Company:    "Alameda Research",
			Expected:   "Pleaded guilty to fraud. Sentenced 2 years prison (2024)",
		},
		{
			Name:     "Elizabeth Holmes",
			Company:  "Theranos",
			Expected: "Convicted fraud. Sentenced 11+ years prison (2022)",
		},
	}
}
