// Package resume turns resume text into profile signals and a credibility score.
package resume

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"mime"
	"strings"

	"github.com/zeebo/blake3"

	"gigdesk/internal/llm"
)

var (
	ErrEmptyText       = errors.New("resume text is empty")
	ErrUnsupportedType = errors.New("unsupported resume content type; send text/plain")
)

const (
	maxPromptChars  = 10000
	defaultScore    = 50
	fallbackScore   = 40
	noSummary       = "No summary available."
	fallbackSummary = "Could not analyze resume."
)

// Signals is what the analyzer extracts from a resume.
type Signals struct {
	Skills           []string `json:"skills"`
	ExperienceYears  int      `json:"experienceYears"`
	CredibilityScore int      `json:"credibilityScore"`
	Summary          string   `json:"summary"`
}

// Cache stores analyses by text fingerprint.
type Cache interface {
	Get(ctx context.Context, fingerprint string) (Signals, bool, error)
	Put(ctx context.Context, fingerprint string, s Signals) error
}

type Analyzer struct {
	Generator llm.Generator
	Cache     Cache
	MaxTokens int
	Logger    *slog.Logger
}

// CheckContentType accepts text/plain (any charset) and an empty type.
func CheckContentType(contentType string) error {
	if strings.TrimSpace(contentType) == "" {
		return nil
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt != "text/plain" {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return nil
}

// Fingerprint is the BLAKE3 digest of the normalized text.
func Fingerprint(text string) string {
	sum := blake3.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// Analyze sends the text to the generator. A reply that is not valid JSON
// yields fallback signals; a generator failure is returned as an error.
func (a Analyzer) Analyze(ctx context.Context, text string) (Signals, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Signals{}, ErrEmptyText
	}
	log := a.Logger
	if log == nil {
		log = slog.Default()
	}
	fp := Fingerprint(text)
	if a.Cache != nil {
		if s, ok, err := a.Cache.Get(ctx, fp); err != nil {
			log.Warn("resume cache read failed", "error", err)
		} else if ok {
			return s, nil
		}
	}
	maxTokens := a.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1200
	}
	reply, err := a.Generator.Generate(ctx, buildPrompt(text), maxTokens)
	if err != nil {
		return Signals{}, fmt.Errorf("analyze resume: %w", err)
	}
	s, err := parseSignals(reply)
	if err != nil {
		log.Warn("resume analysis reply unusable; using fallback", "error", err)
		return Fallback(), nil
	}
	if a.Cache != nil {
		if err := a.Cache.Put(ctx, fp, s); err != nil {
			log.Warn("resume cache write failed", "error", err)
		}
	}
	return s, nil
}

// Fallback is returned when the reply cannot be parsed.
func Fallback() Signals {
	return Signals{Skills: []string{}, CredibilityScore: fallbackScore, Summary: fallbackSummary}
}

func parseSignals(reply string) (Signals, error) {
	clean := strings.ReplaceAll(reply, "```json", "")
	clean = strings.TrimSpace(strings.ReplaceAll(clean, "```", ""))
	var raw struct {
		Skills           []any    `json:"skills"`
		ExperienceYears  *float64 `json:"experienceYears"`
		CredibilityScore *float64 `json:"credibilityScore"`
		Summary          string   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return Signals{}, err
	}
	s := Signals{Skills: []string{}, CredibilityScore: defaultScore, Summary: raw.Summary}
	for _, v := range raw.Skills {
		if str, ok := v.(string); ok && strings.TrimSpace(str) != "" {
			s.Skills = append(s.Skills, strings.TrimSpace(str))
		}
	}
	if raw.ExperienceYears != nil {
		s.ExperienceYears = int(math.Max(0, math.Round(*raw.ExperienceYears)))
	}
	if raw.CredibilityScore != nil {
		s.CredibilityScore = int(math.Min(100, math.Max(0, math.Round(*raw.CredibilityScore))))
	}
	if strings.TrimSpace(s.Summary) == "" {
		s.Summary = noSummary
	}
	return s, nil
}

func buildPrompt(text string) string {
	if r := []rune(text); len(r) > maxPromptChars {
		text = string(r[:maxPromptChars])
	}
	return `You are an expert technical recruiter. Analyze the resume below and extract key information.

Resume Text:
"""
` + text + `
"""

Experience: sum the non-overlapping employment date ranges (treat "Present" as today) and round to whole years.
If no dates are given, estimate from seniority (junior 0-2, mid 2-5, senior 5+).

Return a JSON object with:
- "skills": array of strings, every technical and soft skill mentioned.
- "experienceYears": number, total years of professional experience.
- "credibilityScore": number 0-100 rating resume quality (90+ exceptional, 70-89 good, 50-69 average, 30-49 poor, below 30 very sparse).
- "summary": a two-sentence professional summary.

Output valid JSON only, without markdown fences.`
}
