// Package matcher provides job-side and candidate-side matching fronts over
// a matchengine.Engine, plus one-shot helpers that score ad-hoc text pairs
// without the caller managing index state.
package matcher

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hirewire/matchengine"
	"github.com/hirewire/matchengine/model"
)

// Job is a posting to index on the job side.
type Job struct {
	Key         string
	Title       string
	Description string
	Skills      []string
	CreatedAt   string
}

// Resume is a candidate profile used as a query against jobs, or as a record
// on the candidate side.
type Resume struct {
	Key       string
	Text      string
	Skills    []string
	CreatedAt string
}

// CandidateMatch pairs a candidate key with its best match, for reverse
// matching where the query iterates over candidates.
type CandidateMatch struct {
	CandidateKey string
	model.MatchScore
}

// JobMatcher indexes jobs and ranks them against candidate resumes.
type JobMatcher struct {
	engine *matchengine.Engine
}

// NewJobMatcher wraps an engine whose records are job postings.
func NewJobMatcher(engine *matchengine.Engine) *JobMatcher {
	return &JobMatcher{engine: engine}
}

// Engine exposes the underlying engine, e.g. for Load at startup.
func (m *JobMatcher) Engine() *matchengine.Engine { return m.engine }

// IndexJob stores (or replaces) a job posting. The embedded text is the title
// and description; skills are joined in by the engine.
func (m *JobMatcher) IndexJob(ctx context.Context, job Job) error {
	return m.engine.Index(ctx, matchengine.IndexRequest{
		Key:       job.Key,
		Type:      model.RecordTypeJob,
		Text:      jobText(job),
		Skills:    job.Skills,
		CreatedAt: job.CreatedAt,
	})
}

// DeleteJob removes a job posting. Unknown keys are a no-op.
func (m *JobMatcher) DeleteJob(ctx context.Context, key string) error {
	return m.engine.Delete(ctx, key)
}

// Match ranks indexed jobs against a resume. filterKeys, when non-empty,
// restricts results to those job keys.
func (m *JobMatcher) Match(ctx context.Context, resume Resume, topK int, filterKeys ...string) ([]model.MatchScore, error) {
	return m.engine.Search(ctx, matchengine.SearchRequest{
		Text:       resume.Text,
		Skills:     resume.Skills,
		TopK:       topK,
		Type:       model.RecordTypeJob,
		FilterKeys: filterKeys,
	})
}

// MatchResumeToJob scores one resume against one job description. The job is
// indexed under a temporary key, matched with a key filter and removed again,
// so the call leaves the index as it found it.
func (m *JobMatcher) MatchResumeToJob(ctx context.Context, resumeText, jobDescription string) (model.MatchScore, error) {
	key := tempKey()
	if err := m.IndexJob(ctx, Job{Key: key, Description: jobDescription}); err != nil {
		return model.MatchScore{}, err
	}
	defer m.engine.Delete(context.WithoutCancel(ctx), key)

	matches, err := m.Match(ctx, Resume{Text: resumeText}, 1, key)
	if err != nil {
		return model.MatchScore{}, err
	}
	if len(matches) == 0 {
		return model.MatchScore{}, matchengine.ErrNoCandidates
	}
	return matches[0], nil
}

// BatchMatchResumes scores each resume against one job description. The job
// is indexed once under a temporary key; the per-resume searches run
// concurrently. Results are returned in input order.
func (m *JobMatcher) BatchMatchResumes(ctx context.Context, resumeTexts []string, jobDescription string) ([]model.MatchScore, error) {
	key := tempKey()
	if err := m.IndexJob(ctx, Job{Key: key, Description: jobDescription}); err != nil {
		return nil, err
	}
	defer m.engine.Delete(context.WithoutCancel(ctx), key)

	results := make([]model.MatchScore, len(resumeTexts))
	g, gctx := errgroup.WithContext(ctx)
	for i, text := range resumeTexts {
		i, text := i, text
		g.Go(func() error {
			matches, err := m.Match(gctx, Resume{Text: text}, 1, key)
			if err != nil {
				return err
			}
			if len(matches) > 0 {
				results[i] = matches[0]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MatchJobToCandidates scores one job description against a set of candidate
// resumes, returning one entry per candidate in input order.
func (m *JobMatcher) MatchJobToCandidates(ctx context.Context, jobDescription string, candidates []Resume) ([]CandidateMatch, error) {
	key := tempKey()
	if err := m.IndexJob(ctx, Job{Key: key, Description: jobDescription}); err != nil {
		return nil, err
	}
	defer m.engine.Delete(context.WithoutCancel(ctx), key)

	results := make([]CandidateMatch, len(candidates))
	for i, c := range candidates {
		matches, err := m.Match(ctx, c, 1, key)
		if err != nil {
			return nil, err
		}
		results[i] = CandidateMatch{CandidateKey: c.Key}
		if len(matches) > 0 {
			results[i].MatchScore = matches[0]
		}
	}
	return results, nil
}

// CandidateMatcher indexes candidate profiles and ranks them against jobs.
type CandidateMatcher struct {
	engine *matchengine.Engine
}

// NewCandidateMatcher wraps an engine whose records are candidate profiles.
func NewCandidateMatcher(engine *matchengine.Engine) *CandidateMatcher {
	return &CandidateMatcher{engine: engine}
}

// Engine exposes the underlying engine, e.g. for Load at startup.
func (m *CandidateMatcher) Engine() *matchengine.Engine { return m.engine }

// IndexCandidate stores (or replaces) a candidate profile.
func (m *CandidateMatcher) IndexCandidate(ctx context.Context, resume Resume) error {
	return m.engine.Index(ctx, matchengine.IndexRequest{
		Key:       resume.Key,
		Type:      model.RecordTypeCandidate,
		Text:      resume.Text,
		Skills:    resume.Skills,
		CreatedAt: resume.CreatedAt,
	})
}

// DeleteCandidate removes a candidate profile. Unknown keys are a no-op.
func (m *CandidateMatcher) DeleteCandidate(ctx context.Context, key string) error {
	return m.engine.Delete(ctx, key)
}

// ReverseMatch ranks indexed candidates against a job posting.
func (m *CandidateMatcher) ReverseMatch(ctx context.Context, job Job, topK int) ([]model.MatchScore, error) {
	return m.engine.Search(ctx, matchengine.SearchRequest{
		Text:   jobText(job),
		Skills: job.Skills,
		TopK:   topK,
		Type:   model.RecordTypeCandidate,
	})
}

func jobText(job Job) string {
	if job.Title == "" {
		return job.Description
	}
	return job.Title + " " + job.Description
}

func tempKey() string {
	return "tmp-" + uuid.NewString()
}
