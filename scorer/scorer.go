// Package scorer combines semantic similarity with skill-overlap, keyword-overlap
// and recency signals into a single ranked score.
package scorer

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/hirewire/matchengine/model"
)

// Weights holds the blend weights for the hybrid score. Callers may supply any
// weights; they are not validated to sum to 1 here.
type Weights struct {
	Semantic     float64
	SkillOverlap float64
	Keyword      float64
	Recency      float64
}

// DefaultWeights is the standard retrieval blend.
var DefaultWeights = Weights{
	Semantic:     0.45,
	SkillOverlap: 0.25,
	Keyword:      0.15,
	Recency:      0.15,
}

// AuditWeights holds the blend for the 4-factor audit score, where psychometric
// and fairness signals replace keyword and recency.
type AuditWeights struct {
	Semantic     float64
	SkillOverlap float64
	Psychometric float64
	Fairness     float64
}

// DefaultAuditWeights is the standard audit blend.
var DefaultAuditWeights = AuditWeights{
	Semantic:     0.4,
	SkillOverlap: 0.3,
	Psychometric: 0.2,
	Fairness:     0.1,
}

// QueryProfile is the query side of a scoring comparison: the raw query text
// plus the skill set the caller requires.
type QueryProfile struct {
	Text   string
	Skills []string
}

// Options configures a Scorer.
type Options struct {
	// Weights is the hybrid blend applied by Score.
	Weights Weights

	// Now supplies the current time for recency. Overridable in tests.
	Now func() time.Time
}

// DefaultOptions are the recommended scorer options.
var DefaultOptions = Options{
	Weights: DefaultWeights,
	Now:     time.Now,
}

// Scorer computes hybrid match scores. A Scorer is stateless and safe for
// concurrent use.
type Scorer struct {
	opts Options
}

// New creates a new scorer.
func New(optFns ...func(o *Options)) *Scorer {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scorer{opts: opts}
}

// Weights returns the configured blend.
func (s *Scorer) Weights() Weights { return s.opts.Weights }

// Score blends the given semantic similarity with skill, keyword and recency
// signals for the candidate record. All component scores and the final score
// are rounded to 4 decimal places.
func (s *Scorer) Score(query QueryProfile, rec *model.Record, semantic float64) model.MatchScore {
	matched := intersectSkills(query.Skills, rec.Skills)
	skill := float64(len(matched)) / math.Max(float64(len(query.Skills)), 1)
	keyword := keywordOverlap(query.Text, rec.Text)

	recency := 0.5
	if created, ok := parseCreatedAt(rec.CreatedAt); ok {
		recency = recencyScore(created, s.opts.Now())
	}

	w := s.opts.Weights
	final := w.Semantic*semantic + w.SkillOverlap*skill + w.Keyword*keyword + w.Recency*recency

	return model.MatchScore{
		Key:           rec.Key,
		SemanticScore: round4(semantic),
		SkillOverlap:  round4(skill),
		KeywordScore:  round4(keyword),
		RecencyScore:  round4(recency),
		FinalScore:    round4(final),
		MatchedSkills: matched,
		Explanation: map[string]float64{
			"semantic":      semantic,
			"skill_overlap": skill,
			"keyword_match": keyword,
			"recency":       recency,
		},
	}
}

// FinalAuditScore blends the four audit factors. Inputs are expected in [0, 1];
// the result is rounded to 4 decimal places.
func FinalAuditScore(semantic, skillOverlap, psychometric, fairness float64, w AuditWeights) float64 {
	final := w.Semantic*semantic + w.SkillOverlap*skillOverlap + w.Psychometric*psychometric + w.Fairness*fairness
	return round4(final)
}

// Normalize clamps a score into [0, 1] and rounds it to 4 decimal places.
func Normalize(score float64) float64 {
	return round4(math.Min(1, math.Max(0, score)))
}

// Tokenize lower-cases the text and splits it on whitespace into a token set.
// Token frequency is deliberately discarded.
func Tokenize(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tokens[f] = struct{}{}
	}
	return tokens
}

// keywordOverlap is the share of the candidate's tokens also present in the
// query text.
func keywordOverlap(queryText, candidateText string) float64 {
	qt := Tokenize(queryText)
	ct := Tokenize(candidateText)

	common := 0
	for tok := range ct {
		if _, ok := qt[tok]; ok {
			common++
		}
	}
	return float64(common) / math.Max(float64(len(ct)), 1)
}

// intersectSkills returns the skills present in both sets, sorted for
// deterministic output.
func intersectSkills(required, have []string) []string {
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[s] = struct{}{}
	}

	seen := make(map[string]struct{}, len(required))
	matched := make([]string, 0, len(required))
	for _, s := range required {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := set[s]; ok {
			matched = append(matched, s)
		}
	}
	sort.Strings(matched)
	return matched
}

// recencyScore decays linearly over one year and floors at zero.
func recencyScore(created, now time.Time) float64 {
	days := now.Sub(created).Hours() / 24
	return math.Max(0, 1-days/365)
}

// parseCreatedAt parses the record timestamp. It reports ok=false rather than
// an error so callers can apply the neutral fallback explicitly.
func parseCreatedAt(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
