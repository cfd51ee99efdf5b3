package service

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"narsus/internal/model"
	"narsus/internal/repository"
	"narsus/internal/scoring"
)

// QCAService manages question-course associations. Every mutation keeps the
// max scores of the affected surveys current.
type QCAService struct {
	qcas      repository.QCARepo
	questions repository.QuestionRepo
	courses   repository.CourseRepo
	upkeep    *SurveyUpkeep
	log       *zap.Logger
}

// NewQCAService creates a new QCA service
func NewQCAService(qcas repository.QCARepo, questions repository.QuestionRepo, courses repository.CourseRepo, upkeep *SurveyUpkeep, log *zap.Logger) *QCAService {
	return &QCAService{
		qcas:      qcas,
		questions: questions,
		courses:   courses,
		upkeep:    upkeep,
		log:       log,
	}
}

// Create links a question to a course. A pair can only be linked once.
func (s *QCAService) Create(ctx context.Context, req *model.QCACreate) (*model.QCA, error) {
	questionID, err := ParseID("question_id", req.QuestionID)
	if err != nil {
		return nil, err
	}
	courseID, err := ParseID("course_id", req.CourseID)
	if err != nil {
		return nil, err
	}
	association := req.AssociationType
	if association == "" {
		association = scoring.Positive
	}
	if !association.Valid() {
		return nil, invalid("answer_association_type", "must be positive or negative")
	}
	if err := validateFeedbackRules("feedbacks_based_on_score", req.Feedbacks); err != nil {
		return nil, err
	}

	if _, err := s.questions.GetByID(ctx, questionID); err != nil {
		return nil, translate(err, "question")
	}
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, translate(err, "course")
	}
	existing, err := s.qcas.List(ctx, model.QCAFilter{QuestionID: questionID, CourseID: courseID})
	if err != nil {
		return nil, fmt.Errorf("lookup qca: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: question is already linked to this course", ErrConflict)
	}

	qca := &model.QCA{
		QuestionID:      questionID,
		CourseID:        courseID,
		AssociationType: association,
		Feedbacks:       req.Feedbacks,
	}
	if err := s.qcas.Create(ctx, qca); err != nil {
		return nil, translate(err, "question-course association")
	}
	if err := s.upkeep.refreshCourses(ctx, courseID); err != nil {
		return nil, err
	}
	return qca, nil
}

// Get returns one association
func (s *QCAService) Get(ctx context.Context, id primitive.ObjectID) (*model.QCA, error) {
	qca, err := s.qcas.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "question-course association")
	}
	return qca, nil
}

// List returns associations, optionally filtered by question and course
func (s *QCAService) List(ctx context.Context, filter model.QCAFilter) ([]*model.QCA, error) {
	qcas, err := s.qcas.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list qcas: %w", err)
	}
	return qcas, nil
}

// Update changes the association type and feedback rules
func (s *QCAService) Update(ctx context.Context, id primitive.ObjectID, req *model.QCAUpdate) (*model.QCA, error) {
	qca, err := s.qcas.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "question-course association")
	}
	if req.AssociationType != nil {
		if !req.AssociationType.Valid() {
			return nil, invalid("answer_association_type", "must be positive or negative")
		}
		qca.AssociationType = *req.AssociationType
	}
	if req.Feedbacks != nil {
		if err := validateFeedbackRules("feedbacks_based_on_score", *req.Feedbacks); err != nil {
			return nil, err
		}
		qca.Feedbacks = *req.Feedbacks
	}
	if err := s.qcas.Update(ctx, qca); err != nil {
		return nil, translate(err, "question-course association")
	}
	if err := s.upkeep.refreshCourses(ctx, qca.CourseID); err != nil {
		return nil, err
	}
	return qca, nil
}

// Delete removes one association
func (s *QCAService) Delete(ctx context.Context, id primitive.ObjectID) error {
	qca, err := s.qcas.GetByID(ctx, id)
	if err != nil {
		return translate(err, "question-course association")
	}
	if err := s.qcas.Delete(ctx, id); err != nil {
		return translate(err, "question-course association")
	}
	return s.upkeep.refreshCourses(ctx, qca.CourseID)
}
