package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"narsus/internal/scoring"
)

// SurveyAttempt is one student's run through a survey. The score fields stay
// empty until the attempt is submitted.
type SurveyAttempt struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	StudentID   primitive.ObjectID `json:"student_id" bson:"student_id"`
	SurveyID    primitive.ObjectID `json:"survey_id" bson:"survey_id"`
	StartedAt   time.Time          `json:"started_at" bson:"started_at"`
	SubmittedAt *time.Time         `json:"submitted_at,omitempty" bson:"submitted_at,omitempty"`
	IsSubmitted bool               `json:"is_submitted" bson:"is_submitted"`

	CourseScores                map[string]float64                 `json:"course_scores,omitempty" bson:"course_scores,omitempty"`
	CourseFeedback              map[string]string                  `json:"course_feedback,omitempty" bson:"course_feedback,omitempty"`
	DetailedFeedback            map[string][]string                `json:"detailed_feedback,omitempty" bson:"detailed_feedback,omitempty"`
	CourseOutcomeCategorization map[string]scoring.OutcomeCategory `json:"course_outcome_categorization,omitempty" bson:"course_outcome_categorization,omitempty"`
	OverallSurveyFeedback       string                             `json:"overall_survey_feedback,omitempty" bson:"overall_survey_feedback,omitempty"`
	ActualOverallSurveyScore    *float64                           `json:"actual_overall_survey_score,omitempty" bson:"actual_overall_survey_score,omitempty"`

	// Answers is filled on read and never stored on the attempt document
	Answers []*StudentAnswer `json:"answers,omitempty" bson:"-"`
}

// Submission is the set of fields written to an attempt by the scoring pass
type Submission struct {
	SubmittedAt      time.Time
	CourseScores     map[string]float64
	CourseFeedback   map[string]string
	DetailedFeedback map[string][]string
	CourseOutcomes   map[string]scoring.OutcomeCategory
	OverallFeedback  string
	OverallScore     float64
}

// Apply copies the submission onto the attempt and marks it submitted
func (s *Submission) Apply(a *SurveyAttempt) {
	at := s.SubmittedAt
	score := s.OverallScore
	a.SubmittedAt = &at
	a.IsSubmitted = true
	a.CourseScores = s.CourseScores
	a.CourseFeedback = s.CourseFeedback
	a.DetailedFeedback = s.DetailedFeedback
	a.CourseOutcomeCategorization = s.CourseOutcomes
	a.OverallSurveyFeedback = s.OverallFeedback
	a.ActualOverallSurveyScore = &score
}

// StartAttemptRequest is the request body for POST /survey-attempts/start
type StartAttemptRequest struct {
	SurveyID string `json:"survey_id"`
}

// AttemptResult is the submitted attempt enriched for display
type AttemptResult struct {
	*SurveyAttempt
	SurveyTitle           string             `json:"survey_title"`
	StudentDisplayName    string             `json:"student_display_name"`
	CourseNames           map[string]string  `json:"course_names"`
	MaxScoresPerCourse    map[string]float64 `json:"max_scores_per_course"`
	MaxOverallSurveyScore float64            `json:"max_overall_survey_score"`
}

// AttemptSubmittedEvent is pushed to the survey owner when a student submits
type AttemptSubmittedEvent struct {
	Type               string                             `json:"type"`
	AttemptID          string                             `json:"attempt_id"`
	SurveyID           string                             `json:"survey_id"`
	StudentID          string                             `json:"student_id"`
	StudentDisplayName string                             `json:"student_display_name"`
	OverallScore       float64                            `json:"actual_overall_survey_score"`
	Outcomes           map[string]scoring.OutcomeCategory `json:"course_outcome_categorization"`
	SubmittedAt        time.Time                          `json:"submitted_at"`
}

// EventAttemptSubmitted is the Type of AttemptSubmittedEvent
const EventAttemptSubmitted = "attempt_submitted"

// Page is a skip/limit window over a listing
type Page struct {
	Skip  int64
	Limit int64
}
