package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"narsus/internal/scoring"
)

// Survey groups courses into one self-evaluation with per-course thresholds
type Survey struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Title       string               `json:"title" bson:"title"`
	Description string               `json:"description,omitempty" bson:"description,omitempty"`
	CourseIDs   []primitive.ObjectID `json:"course_ids" bson:"course_ids"`
	IsPublished bool                 `json:"is_published" bson:"is_published"`
	CreatedBy   primitive.ObjectID   `json:"created_by" bson:"created_by"`

	// Rule maps are keyed by course id hex
	CourseSkillTotalScoreThresholds map[string][]scoring.FeedbackRule `json:"course_skill_total_score_thresholds" bson:"course_skill_total_score_thresholds"`
	CourseOutcomeThresholds         map[string][]scoring.OutcomeRule  `json:"course_outcome_thresholds" bson:"course_outcome_thresholds"`
	OverallScoreFeedbacks           []scoring.FeedbackRule            `json:"overall_score_feedbacks,omitempty" bson:"overall_score_feedbacks,omitempty"`

	MaxScoresPerCourse    map[string]float64 `json:"max_scores_per_course" bson:"max_scores_per_course"`
	MaxOverallSurveyScore float64            `json:"max_overall_survey_score" bson:"max_overall_survey_score"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// CourseKeys returns the survey's course ids as hex strings, in order
func (s *Survey) CourseKeys() []string {
	keys := make([]string, len(s.CourseIDs))
	for i, id := range s.CourseIDs {
		keys[i] = id.Hex()
	}
	return keys
}

// HasCourse reports whether id is one of the survey's courses
func (s *Survey) HasCourse(id primitive.ObjectID) bool {
	for _, c := range s.CourseIDs {
		if c == id {
			return true
		}
	}
	return false
}

// SurveyCreate is the request body for POST /surveys
type SurveyCreate struct {
	Title                           string                            `json:"title"`
	Description                     string                            `json:"description"`
	CourseIDs                       []string                          `json:"course_ids"`
	CourseSkillTotalScoreThresholds map[string][]scoring.FeedbackRule `json:"course_skill_total_score_thresholds"`
	CourseOutcomeThresholds         map[string][]scoring.OutcomeRule  `json:"course_outcome_thresholds"`
	OverallScoreFeedbacks           []scoring.FeedbackRule            `json:"overall_score_feedbacks"`
}

// SurveyUpdate is the request body for PUT /surveys/{id}. Nil fields are left unchanged.
type SurveyUpdate struct {
	Title                           *string                            `json:"title"`
	Description                     *string                            `json:"description"`
	CourseIDs                       *[]string                          `json:"course_ids"`
	IsPublished                     *bool                              `json:"is_published"`
	CourseSkillTotalScoreThresholds *map[string][]scoring.FeedbackRule `json:"course_skill_total_score_thresholds"`
	CourseOutcomeThresholds         *map[string][]scoring.OutcomeRule  `json:"course_outcome_thresholds"`
	OverallScoreFeedbacks           *[]scoring.FeedbackRule            `json:"overall_score_feedbacks"`
}

// SurveyQuestionDetail is one question as a student sees it while taking a
// survey. QCAID and CourseID are the first association found; QCAIDs and
// CourseIDs list every association of the question in the survey.
type SurveyQuestionDetail struct {
	QCAID         string             `json:"qca_id"`
	CourseID      string             `json:"course_id"`
	QCAIDs        []string           `json:"qca_ids"`
	CourseIDs     []string           `json:"course_ids"`
	QuestionID    string             `json:"question_id"`
	Title         string             `json:"title"`
	Details       string             `json:"details,omitempty"`
	AnswerType    scoring.AnswerType `json:"answer_type"`
	AnswerOptions map[string]any     `json:"answer_options"`
}

// SurveyWithQuestions is a survey together with its question details
type SurveyWithQuestions struct {
	*Survey
	Questions []SurveyQuestionDetail `json:"questions"`
}
