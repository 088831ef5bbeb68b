package engine

import (
	"context"
	"fmt"

	"gigdesk/internal/events"
	"gigdesk/internal/resume"
)

type ResumeResult struct {
	Score           int              `json:"score"`
	Skills          []string         `json:"skills"`
	ExperienceYears int              `json:"experienceYears"`
	Summary         string           `json:"summary"`
	Breakdown       resume.Breakdown `json:"breakdown"`
	Message         string           `json:"message"`
}

// ApplyResume analyzes resume text and folds the signals into the user's
// profile and credibility score.
func (e Engine) ApplyResume(ctx context.Context, userID, contentType, text string) (ResumeResult, error) {
	if e.Resume == nil {
		return ResumeResult{}, ErrNoAnalyzer
	}
	if err := resume.CheckContentType(contentType); err != nil {
		return ResumeResult{}, err
	}
	if _, err := e.Repo.GetUser(ctx, userID); err != nil {
		return ResumeResult{}, fmt.Errorf("load user: %w", err)
	}
	signals, err := e.Resume.Analyze(ctx, text)
	if err != nil {
		return ResumeResult{}, err
	}
	paid, total, err := e.Repo.InvoiceCounts(ctx, userID)
	if err != nil {
		return ResumeResult{}, fmt.Errorf("invoice history: %w", err)
	}
	breakdown := resume.Score(len(signals.Skills), signals.ExperienceYears, resume.Financial{PaidInvoices: paid, TotalInvoices: total})
	if err := e.Repo.UpdateUserProfile(ctx, userID, signals.Skills, signals.ExperienceYears, breakdown.Total, e.now()); err != nil {
		return ResumeResult{}, err
	}
	if err := e.events().Append(ctx, nil, events.TypeResumeAnalyzed, userID, events.EntityUser, userID, events.EventPayload{
		"score":  breakdown.Total,
		"skills": len(signals.Skills),
	}); err != nil {
		e.log().Warn("record resume analysis", "user_id", userID, "error", err)
	}
	return ResumeResult{
		Score:           breakdown.Total,
		Skills:          signals.Skills,
		ExperienceYears: signals.ExperienceYears,
		Summary:         signals.Summary,
		Breakdown:       breakdown,
		Message:         "Resume processed and profile updated successfully",
	}, nil
}
