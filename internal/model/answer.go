package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StudentAnswer is the answer stored for one (attempt, qca) pair. The value is
// a string, a list of strings or a number depending on the question type.
type StudentAnswer struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SurveyAttemptID primitive.ObjectID `json:"survey_attempt_id" bson:"survey_attempt_id"`
	QCAID           primitive.ObjectID `json:"qca_id" bson:"qca_id"`
	QuestionID      primitive.ObjectID `json:"question_id" bson:"question_id"`
	AnswerValue     any                `json:"answer_value" bson:"answer_value"`
	ScoreAchieved   *float64           `json:"score_achieved,omitempty" bson:"score_achieved,omitempty"`
	IsUnanswered    bool               `json:"is_unanswered" bson:"is_unanswered"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// AnswerScore is the score written back to one stored answer
type AnswerScore struct {
	QCAID       primitive.ObjectID
	QuestionID  primitive.ObjectID
	AnswerValue any
	Score       float64
	Unanswered  bool
}

// AnswerInput is one answer in POST /survey-attempts/{id}/answers
type AnswerInput struct {
	QCAID       string `json:"qca_id"`
	QuestionID  string `json:"question_id"`
	AnswerValue any    `json:"answer_value"`
}

// SaveAnswersRequest is the request body for POST /survey-attempts/{id}/answers
type SaveAnswersRequest struct {
	Answers []AnswerInput `json:"answers"`
}
