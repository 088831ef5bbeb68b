package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gigdesk/internal/domain"
)

func (r Repo) GetResumeAnalysis(ctx context.Context, fingerprint string) (domain.ResumeAnalysis, error) {
	var a domain.ResumeAnalysis
	var skills string
	err := r.DB.QueryRowContext(ctx, `SELECT fingerprint,skills_json,experience_years,credibility_score,summary,created_at FROM resume_analyses WHERE fingerprint=?`, fingerprint).
		Scan(&a.Fingerprint, &skills, &a.ExperienceYears, &a.CredibilityScore, &a.Summary, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.Skills, err = decodeList(skills)
	return a, err
}

// PutResumeAnalysis caches an analysis, replacing any earlier entry for the fingerprint.
func (r Repo) PutResumeAnalysis(ctx context.Context, a domain.ResumeAnalysis) error {
	if a.Fingerprint == "" {
		return errors.New("fingerprint required")
	}
	if a.CreatedAt == "" {
		a.CreatedAt = FormatTime(time.Now())
	}
	skills, err := encodeList(a.Skills)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO resume_analyses(fingerprint,skills_json,experience_years,credibility_score,summary,created_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(fingerprint) DO UPDATE SET skills_json=excluded.skills_json, experience_years=excluded.experience_years, credibility_score=excluded.credibility_score, summary=excluded.summary, created_at=excluded.created_at`,
		a.Fingerprint, skills, a.ExperienceYears, a.CredibilityScore, a.Summary, a.CreatedAt)
	return err
}
