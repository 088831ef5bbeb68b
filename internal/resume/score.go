package resume

const (
	baseScore       = 40
	financialWeight = 20
	skillsCap       = 20
	experienceCap   = 20
)

// Financial summarizes invoice history for scoring.
type Financial struct {
	PaidInvoices  int
	TotalInvoices int
}

// Breakdown itemizes a credibility score.
type Breakdown struct {
	Base       int `json:"base"`
	Financial  int `json:"financial"`
	Skills     int `json:"skills"`
	Experience int `json:"experience"`
	Total      int `json:"total"`
}

// Score combines base, financial track record, skills and experience, capped at 100.
func Score(skillsCount, experienceYears int, f Financial) Breakdown {
	b := Breakdown{Base: baseScore}
	if f.TotalInvoices > 0 {
		b.Financial = f.PaidInvoices * financialWeight / f.TotalInvoices
	}
	b.Skills = min(max(skillsCount, 0)*2, skillsCap)
	b.Experience = min(max(experienceYears, 0)*4, experienceCap)
	b.Total = min(b.Base+b.Financial+b.Skills+b.Experience, 100)
	return b
}
