package agents

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"gigdesk/internal/config"
	"gigdesk/internal/domain"
)

type Hunter struct {
	Config config.Hunter
}

// MatchScore is the percentage of the job's skills the user has.
func MatchScore(jobSkills, userSkills []string) int {
	if len(jobSkills) == 0 {
		return 0
	}
	have := make(map[string]bool, len(userSkills))
	for _, s := range userSkills {
		have[normalizeSkill(s)] = true
	}
	var hit int
	for _, s := range jobSkills {
		if have[normalizeSkill(s)] {
			hit++
		}
	}
	return hit * 100 / len(jobSkills)
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (h Hunter) ShouldAct(user domain.User, job domain.Job, now time.Time) bool {
	if user.BidsPausedUntil != nil && user.BidsPausedUntil.After(now) {
		return false
	}
	if job.Status != "Open" || job.ClientID == user.ID {
		return false
	}
	if h.Config.MaxJobAgeDays > 0 && job.PostedAt.Before(now.AddDate(0, 0, -h.Config.MaxJobAgeDays)) {
		return false
	}
	return true
}

// Evaluate returns a bid suggestion when the match clears the threshold.
func (h Hunter) Evaluate(user domain.User, job domain.Job) *Action {
	score := MatchScore(job.Skills, user.Skills)
	if score < h.Config.MinMatchScore || score == 0 {
		return nil
	}
	return &Action{
		Domain:   domain.DomainHunter,
		Kind:     domain.KindJobMatch,
		Priority: PriorityMedium,
		BidMatch: &BidMatch{
			JobID:         job.ID,
			Title:         job.Title,
			Score:         score,
			BidAmount:     job.Budget,
			ProposalDraft: proposal(user, job),
		},
	}
}

// Matches scans jobs and returns qualifying suggestions, best score first.
func (h Hunter) Matches(user domain.User, jobs []domain.Job, now time.Time) []Action {
	var res []Action
	for _, j := range jobs {
		if !h.ShouldAct(user, j, now) {
			continue
		}
		if a := h.Evaluate(user, j); a != nil {
			res = append(res, *a)
		}
	}
	slices.SortStableFunc(res, func(a, b Action) int { return cmp.Compare(b.BidMatch.Score, a.BidMatch.Score) })
	return res
}

func proposal(user domain.User, job domain.Job) string {
	var shared []string
	for _, s := range job.Skills {
		for _, u := range user.Skills {
			if normalizeSkill(s) == normalizeSkill(u) {
				shared = append(shared, s)
				break
			}
		}
	}
	exp := ""
	if user.ExperienceYears > 0 {
		exp = fmt.Sprintf(" with %d years of experience", user.ExperienceYears)
	}
	return fmt.Sprintf("Hi, I work with %s%s and can start on \"%s\" right away.", strings.Join(shared, ", "), exp, job.Title)
}
