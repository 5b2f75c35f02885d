package matcher

import (
	"context"

	"github.com/hirewire/matchengine"
	"github.com/hirewire/matchengine/scorer"
)

// NeutralPsychometric is used when no psychometric score is supplied.
const NeutralPsychometric = 0.5

// ScoreRequest describes one candidate/job audit scoring run.
type ScoreRequest struct {
	Resume Resume
	Job    Job

	// Psychometric is the candidate's externally assessed score in [0, 1].
	// Zero means not assessed and falls back to NeutralPsychometric.
	Psychometric float64

	// Weights blends the four audit factors. The zero value means
	// scorer.DefaultAuditWeights.
	Weights scorer.AuditWeights
}

// AuditScore is the outcome of an audit scoring run. All scores are rounded
// to 4 decimal places.
type AuditScore struct {
	CandidateKey string  `json:"candidate_key"`
	JobKey       string  `json:"job_key"`
	Semantic     float64 `json:"semantic_score"`
	SkillOverlap float64 `json:"skill_overlap"`
	Psychometric float64 `json:"psychometric_score"`
	Fairness     float64 `json:"fairness_score"`
	FinalScore   float64 `json:"final_score"`
}

// AuditScorer produces fairness-adjusted audit scores for candidate/job
// pairs. It runs the hybrid matcher on the pair, blends in the psychometric
// signal and re-weights the result with the audit blend.
type AuditScorer struct {
	jobs *JobMatcher
}

// NewAuditScorer wraps a job matcher used for the underlying hybrid match.
func NewAuditScorer(jobs *JobMatcher) *AuditScorer {
	return &AuditScorer{jobs: jobs}
}

// ScoreCandidate indexes the job, matches the resume against it, removes the
// job again and derives the audit score: the fairness score is the normalized
// mean of the hybrid final score and the psychometric score, and the final
// score blends semantic, skill overlap, psychometric and fairness.
func (s *AuditScorer) ScoreCandidate(ctx context.Context, req ScoreRequest) (AuditScore, error) {
	job := req.Job
	if job.Key == "" {
		job.Key = tempKey()
	}
	if err := s.jobs.IndexJob(ctx, job); err != nil {
		return AuditScore{}, err
	}
	defer s.jobs.DeleteJob(context.WithoutCancel(ctx), job.Key)

	matches, err := s.jobs.Match(ctx, req.Resume, 1, job.Key)
	if err != nil {
		return AuditScore{}, err
	}
	if len(matches) == 0 {
		return AuditScore{}, matchengine.ErrNoCandidates
	}
	match := matches[0]

	psychometric := req.Psychometric
	if psychometric == 0 {
		psychometric = NeutralPsychometric
	}
	// Clamp once so the reported breakdown and the blended value agree.
	psychometric = scorer.Normalize(psychometric)
	weights := req.Weights
	if weights == (scorer.AuditWeights{}) {
		weights = scorer.DefaultAuditWeights
	}

	fairness := scorer.Normalize((match.FinalScore + psychometric) / 2)

	return AuditScore{
		CandidateKey: req.Resume.Key,
		JobKey:       req.Job.Key,
		Semantic:     match.SemanticScore,
		SkillOverlap: match.SkillOverlap,
		Psychometric: psychometric,
		Fairness:     fairness,
		FinalScore:   scorer.FinalAuditScore(match.SemanticScore, match.SkillOverlap, psychometric, fairness, weights),
	}, nil
}
