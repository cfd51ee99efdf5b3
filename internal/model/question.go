package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"narsus/internal/scoring"
)

// Question is a reusable survey question with its answer shape and scoring rules
type Question struct {
	ID               primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	Title            string                 `json:"title" bson:"title"`
	Details          string                 `json:"details,omitempty" bson:"details,omitempty"`
	AnswerType       scoring.AnswerType     `json:"answer_type" bson:"answer_type"`
	AnswerOptions    map[string]any         `json:"answer_options" bson:"answer_options"`
	ScoringRules     map[string]any         `json:"scoring_rules" bson:"scoring_rules"`
	DefaultFeedbacks []scoring.FeedbackRule `json:"default_feedbacks_on_score" bson:"default_feedbacks_on_score"`
	CreatedBy        primitive.ObjectID     `json:"created_by" bson:"created_by"`
	CreatedAt        time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at" bson:"updated_at"`
}

// ScoringView returns the engine's view of the question
func (q *Question) ScoringView() scoring.Question {
	return scoring.Question{
		ID:               q.ID.Hex(),
		Title:            q.Title,
		AnswerType:       q.AnswerType,
		Options:          q.AnswerOptions,
		Rules:            q.ScoringRules,
		DefaultFeedbacks: q.DefaultFeedbacks,
	}
}

// QuestionCreate is the request body for POST /questions
type QuestionCreate struct {
	Title            string                 `json:"title"`
	Details          string                 `json:"details"`
	AnswerType       scoring.AnswerType     `json:"answer_type"`
	AnswerOptions    map[string]any         `json:"answer_options"`
	ScoringRules     map[string]any         `json:"scoring_rules"`
	DefaultFeedbacks []scoring.FeedbackRule `json:"default_feedbacks_on_score"`
}

// QuestionUpdate is the request body for PUT /questions/{id}. Nil fields are left unchanged.
type QuestionUpdate struct {
	Title            *string                 `json:"title"`
	Details          *string                 `json:"details"`
	AnswerType       *scoring.AnswerType     `json:"answer_type"`
	AnswerOptions    map[string]any          `json:"answer_options"`
	ScoringRules     map[string]any          `json:"scoring_rules"`
	DefaultFeedbacks *[]scoring.FeedbackRule `json:"default_feedbacks_on_score"`
}
