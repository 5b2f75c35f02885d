// Package model defines the record and result types shared across the engine.
package model

import (
	"fmt"
)

// ID is the engine-internal surrogate identifier for a record.
// IDs are assigned monotonically and never reused within a session; the
// positional index of a record inside the vector store may change across
// rebuilds, its ID never does.
type ID int64

// RecordType is the closed category tag carried by every record.
type RecordType string

const (
	RecordTypeJob       RecordType = "job"
	RecordTypeCandidate RecordType = "candidate"
	RecordTypeResume    RecordType = "resume"
	RecordTypeSkill     RecordType = "skill"
	RecordTypeGeneric   RecordType = "generic"
)

// Valid reports whether t is one of the known record types.
func (t RecordType) Valid() bool {
	switch t {
	case RecordTypeJob, RecordTypeCandidate, RecordTypeResume, RecordTypeSkill, RecordTypeGeneric:
		return true
	default:
		return false
	}
}

// Record is a stored entry: the text the embedding was derived from plus the
// structured attributes the hybrid scorer consumes.
type Record struct {
	// ID is the internal surrogate id (unique, monotone, never reused).
	ID ID `json:"id"`

	// Key is the caller-assigned business key (e.g. job_id). It is the sole
	// stable external handle for the record.
	Key string `json:"key"`

	// Type categorizes the record (job, candidate, resume, skill, generic).
	Type RecordType `json:"type"`

	// Text is the primary text the embedding was derived from.
	Text string `json:"text"`

	// Skills is the skill list used for the skill-overlap signal.
	Skills []string `json:"skills,omitempty"`

	// CreatedAt is an ISO-8601/RFC3339 timestamp string. It is kept as the
	// caller supplied it; parsing happens at the scoring boundary and falls
	// back to a neutral recency when it is missing or malformed.
	CreatedAt string `json:"created_at,omitempty"`

	// Attributes carries free-form auxiliary fields.
	Attributes Attributes `json:"attributes,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.Skills != nil {
		out.Skills = make([]string, len(r.Skills))
		copy(out.Skills, r.Skills)
	}
	out.Attributes = r.Attributes.Clone()
	return &out
}

// String implements fmt.Stringer for log output.
func (r *Record) String() string {
	return fmt.Sprintf("Record(%d:%s:%s)", r.ID, r.Type, r.Key)
}

// MatchScore is one ranked search result with its full score breakdown.
// All score fields are rounded to 4 decimal places for output stability.
type MatchScore struct {
	Key           string             `json:"key"`
	SemanticScore float64            `json:"semantic_score"`
	SkillOverlap  float64            `json:"skill_overlap"`
	KeywordScore  float64            `json:"keyword_match_score"`
	RecencyScore  float64            `json:"recency_score"`
	FinalScore    float64            `json:"final_score"`
	MatchedSkills []string           `json:"matched_skills"`
	Explanation   map[string]float64 `json:"explanation"`
}
