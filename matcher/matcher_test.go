package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/matchengine"
	"github.com/hirewire/matchengine/testutil"
)

const testDim = 64

func newTestEngine(t *testing.T) *matchengine.Engine {
	t.Helper()
	eng, err := matchengine.New(testDim, testutil.NewEncoder(testDim),
		matchengine.WithClock(func() time.Time {
			return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		}),
	)
	require.NoError(t, err)
	return eng
}

func TestJobMatcher_Match(t *testing.T) {
	ctx := context.Background()
	jobs := NewJobMatcher(newTestEngine(t))

	require.NoError(t, jobs.IndexJob(ctx, Job{
		Key:         "J1",
		Title:       "Backend Engineer",
		Description: "building fastapi services in python",
		Skills:      []string{"python", "fastapi"},
	}))
	require.NoError(t, jobs.IndexJob(ctx, Job{
		Key:         "J2",
		Title:       "Java Developer",
		Description: "enterprise spring applications",
		Skills:      []string{"java", "spring"},
	}))

	matches, err := jobs.Match(ctx, Resume{
		Text:   "python developer with backend experience",
		Skills: []string{"python", "docker"},
	}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "J1", matches[0].Key)
	assert.Equal(t, 0.5, matches[0].SkillOverlap)
	assert.Equal(t, []string{"python"}, matches[0].MatchedSkills)

	// Key filter narrows the result set.
	matches, err = jobs.Match(ctx, Resume{Text: "python developer"}, 10, "J2")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "J2", matches[0].Key)
}

func TestJobMatcher_DeleteJob(t *testing.T) {
	ctx := context.Background()
	jobs := NewJobMatcher(newTestEngine(t))

	require.NoError(t, jobs.IndexJob(ctx, Job{Key: "J1", Description: "golang services"}))
	require.NoError(t, jobs.DeleteJob(ctx, "J1"))
	assert.Equal(t, 0, jobs.Engine().Size())

	require.NoError(t, jobs.DeleteJob(ctx, "missing"))
}

func TestJobMatcher_MatchResumeToJob(t *testing.T) {
	ctx := context.Background()
	jobs := NewJobMatcher(newTestEngine(t))

	score, err := jobs.MatchResumeToJob(ctx,
		"experienced python backend developer",
		"python backend developer for api services",
	)
	require.NoError(t, err)
	assert.Greater(t, score.SemanticScore, 0.0)
	assert.Greater(t, score.FinalScore, 0.0)

	// The temporary job is gone afterwards.
	assert.Equal(t, 0, jobs.Engine().Size())
}

func TestJobMatcher_MatchResumeToJob_LeavesExistingJobs(t *testing.T) {
	ctx := context.Background()
	jobs := NewJobMatcher(newTestEngine(t))

	require.NoError(t, jobs.IndexJob(ctx, Job{Key: "J1", Description: "golang services"}))

	score, err := jobs.MatchResumeToJob(ctx, "golang developer", "golang platform work")
	require.NoError(t, err)
	assert.NotEqual(t, "J1", score.Key) // scored against the temp job only

	assert.Equal(t, 1, jobs.Engine().Size())
	assert.True(t, jobs.Engine().Has("J1"))
}

func TestJobMatcher_BatchMatchResumes(t *testing.T) {
	ctx := context.Background()
	jobs := NewJobMatcher(newTestEngine(t))

	resumes := []string{
		"python backend developer with api experience",
		"graphic designer working in print media",
		"python api developer",
	}
	scores, err := jobs.BatchMatchResumes(ctx, resumes, "python developer building api services")
	require.NoError(t, err)
	require.Len(t, scores, 3)

	// Results line up with input order and reflect text similarity.
	assert.Greater(t, scores[0].SemanticScore, scores[1].SemanticScore)
	assert.Greater(t, scores[2].SemanticScore, scores[1].SemanticScore)

	assert.Equal(t, 0, jobs.Engine().Size())
}

func TestJobMatcher_BatchMatchResumes_Empty(t *testing.T) {
	ctx := context.Background()
	jobs := NewJobMatcher(newTestEngine(t))

	scores, err := jobs.BatchMatchResumes(ctx, nil, "any job")
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestJobMatcher_MatchJobToCandidates(t *testing.T) {
	ctx := context.Background()
	jobs := NewJobMatcher(newTestEngine(t))

	candidates := []Resume{
		{Key: "C1", Text: "python backend developer"},
		{Key: "C2", Text: "print media graphic designer"},
	}
	results, err := jobs.MatchJobToCandidates(ctx, "python developer for backend services", candidates)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "C1", results[0].CandidateKey)
	assert.Equal(t, "C2", results[1].CandidateKey)
	assert.Greater(t, results[0].SemanticScore, results[1].SemanticScore)

	assert.Equal(t, 0, jobs.Engine().Size())
}

func TestCandidateMatcher_ReverseMatch(t *testing.T) {
	ctx := context.Background()
	cands := NewCandidateMatcher(newTestEngine(t))

	require.NoError(t, cands.IndexCandidate(ctx, Resume{
		Key:    "C1",
		Text:   "python backend developer building api services",
		Skills: []string{"python"},
	}))
	require.NoError(t, cands.IndexCandidate(ctx, Resume{
		Key:    "C2",
		Text:   "print media graphic designer",
		Skills: []string{"photoshop"},
	}))

	matches, err := cands.ReverseMatch(ctx, Job{
		Title:       "Backend Engineer",
		Description: "python api services",
		Skills:      []string{"python"},
	}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "C1", matches[0].Key)
	assert.Equal(t, 1.0, matches[0].SkillOverlap)
	assert.Equal(t, 0.0, matches[1].SkillOverlap)
}

func TestCandidateMatcher_DeleteCandidate(t *testing.T) {
	ctx := context.Background()
	cands := NewCandidateMatcher(newTestEngine(t))

	require.NoError(t, cands.IndexCandidate(ctx, Resume{Key: "C1", Text: "some profile"}))
	require.NoError(t, cands.DeleteCandidate(ctx, "C1"))
	assert.Equal(t, 0, cands.Engine().Size())
}

func TestMatchers_ShareOneEngineByType(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)
	jobs := NewJobMatcher(eng)
	cands := NewCandidateMatcher(eng)

	require.NoError(t, jobs.IndexJob(ctx, Job{Key: "J1", Description: "python services"}))
	require.NoError(t, cands.IndexCandidate(ctx, Resume{Key: "C1", Text: "python services"}))

	// Each side only sees its record type.
	matches, err := jobs.Match(ctx, Resume{Text: "python services"}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "J1", matches[0].Key)

	matches, err = cands.ReverseMatch(ctx, Job{Description: "python services"}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "C1", matches[0].Key)
}

func TestJobText(t *testing.T) {
	assert.Equal(t, "desc only", jobText(Job{Description: "desc only"}))
	assert.Equal(t, "Title desc", jobText(Job{Title: "Title", Description: "desc"}))
}

func TestTempKeysAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for n := 0; n < 100; n++ {
		key := tempKey()
		_, dup := seen[key]
		require.False(t, dup)
		seen[key] = struct{}{}
	}
	require.Len(t, seen, 100)

	for key := range seen {
		assert.Equal(t, "tmp-", key[:4])
	}
}
