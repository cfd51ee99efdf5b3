package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"narsus/internal/scoring"
)

// QCA links one question to one course with a correlation sign and
// course-specific feedback rules
type QCA struct {
	ID              primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	QuestionID      primitive.ObjectID     `json:"question_id" bson:"question_id"`
	CourseID        primitive.ObjectID     `json:"course_id" bson:"course_id"`
	AssociationType scoring.Association    `json:"answer_association_type" bson:"answer_association_type"`
	Feedbacks       []scoring.FeedbackRule `json:"feedbacks_based_on_score" bson:"feedbacks_based_on_score"`
	CreatedAt       time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at" bson:"updated_at"`
}

// ScoringView returns the engine's view of the association
func (a *QCA) ScoringView() scoring.QCA {
	return scoring.QCA{
		ID:          a.ID.Hex(),
		QuestionID:  a.QuestionID.Hex(),
		CourseID:    a.CourseID.Hex(),
		Association: a.AssociationType,
		Feedbacks:   a.Feedbacks,
	}
}

// QCACreate is the request body for POST /question-course-associations
type QCACreate struct {
	QuestionID      string                 `json:"question_id"`
	CourseID        string                 `json:"course_id"`
	AssociationType scoring.Association    `json:"answer_association_type"`
	Feedbacks       []scoring.FeedbackRule `json:"feedbacks_based_on_score"`
}

// QCAUpdate is the request body for PUT /question-course-associations/{id}.
// Question and course are fixed once the association exists.
type QCAUpdate struct {
	AssociationType *scoring.Association    `json:"answer_association_type"`
	Feedbacks       *[]scoring.FeedbackRule `json:"feedbacks_based_on_score"`
}

// QCAFilter narrows a QCA listing. Zero ids match everything.
type QCAFilter struct {
	QuestionID primitive.ObjectID
	CourseID   primitive.ObjectID
}
