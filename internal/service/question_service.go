package service

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"narsus/internal/model"
	"narsus/internal/repository"
	"narsus/internal/scoring"
)

// QuestionService manages questions and checks their scoring rules
type QuestionService struct {
	questions repository.QuestionRepo
	qcas      repository.QCARepo
	upkeep    *SurveyUpkeep
	log       *zap.Logger
}

// NewQuestionService creates a new question service
func NewQuestionService(questions repository.QuestionRepo, qcas repository.QCARepo, upkeep *SurveyUpkeep, log *zap.Logger) *QuestionService {
	return &QuestionService{
		questions: questions,
		qcas:      qcas,
		upkeep:    upkeep,
		log:       log,
	}
}

// Create adds a question after checking its options and scoring rules
func (s *QuestionService) Create(ctx context.Context, teacherID primitive.ObjectID, req *model.QuestionCreate) (*model.Question, error) {
	q := &model.Question{
		Title:            strings.TrimSpace(req.Title),
		Details:          req.Details,
		AnswerType:       req.AnswerType,
		AnswerOptions:    req.AnswerOptions,
		ScoringRules:     req.ScoringRules,
		DefaultFeedbacks: req.DefaultFeedbacks,
		CreatedBy:        teacherID,
	}
	if err := validateQuestion(q); err != nil {
		return nil, err
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, translate(err, "question")
	}
	return q, nil
}

// Get returns one question
func (s *QuestionService) Get(ctx context.Context, id primitive.ObjectID) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "question")
	}
	return q, nil
}

// List returns every question
func (s *QuestionService) List(ctx context.Context) ([]*model.Question, error) {
	questions, err := s.questions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// Update changes the given fields and re-checks the scoring rules
func (s *QuestionService) Update(ctx context.Context, id primitive.ObjectID, req *model.QuestionUpdate) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "question")
	}
	if req.Title != nil {
		q.Title = strings.TrimSpace(*req.Title)
	}
	if req.Details != nil {
		q.Details = *req.Details
	}
	if req.AnswerType != nil {
		q.AnswerType = *req.AnswerType
	}
	if req.AnswerOptions != nil {
		q.AnswerOptions = req.AnswerOptions
	}
	if req.ScoringRules != nil {
		q.ScoringRules = req.ScoringRules
	}
	if req.DefaultFeedbacks != nil {
		q.DefaultFeedbacks = *req.DefaultFeedbacks
	}
	if err := validateQuestion(q); err != nil {
		return nil, err
	}
	if err := s.questions.Update(ctx, q); err != nil {
		return nil, translate(err, "question")
	}

	linked, err := s.qcas.List(ctx, model.QCAFilter{QuestionID: q.ID})
	if err != nil {
		s.log.Warn("list qcas after question update", zap.String("question_id", q.ID.Hex()), zap.Error(err))
		return q, nil
	}
	if err := s.upkeep.refreshCourses(ctx, courseIDsOf(linked)...); err != nil {
		s.log.Warn("refresh surveys after question update", zap.String("question_id", q.ID.Hex()), zap.Error(err))
	}
	return q, nil
}

// Delete removes a question and every QCA that references it
func (s *QuestionService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.questions.GetByID(ctx, id); err != nil {
		return translate(err, "question")
	}
	removed, err := s.qcas.DeleteByQuestion(ctx, id)
	if err != nil {
		return fmt.Errorf("delete question qcas: %w", err)
	}
	if err := s.questions.Delete(ctx, id); err != nil {
		return translate(err, "question")
	}
	if err := s.upkeep.refreshCourses(ctx, courseIDsOf(removed)...); err != nil {
		return err
	}
	s.log.Info("question deleted", zap.String("question_id", id.Hex()), zap.Int("qcas_removed", len(removed)))
	return nil
}

func courseIDsOf(qcas []*model.QCA) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(qcas))
	ids := make([]primitive.ObjectID, 0, len(qcas))
	for _, q := range qcas {
		if _, dup := seen[q.CourseID]; dup {
			continue
		}
		seen[q.CourseID] = struct{}{}
		ids = append(ids, q.CourseID)
	}
	return ids
}

func validateQuestion(q *model.Question) error {
	if q.Title == "" {
		return invalid("title", "must not be empty")
	}
	if !q.AnswerType.Valid() {
		return invalid("answer_type", "must be one of multiple_choice, multiple_select, input, range")
	}
	spec, err := scoring.ParseSpec(q.AnswerType, q.AnswerOptions, q.ScoringRules)
	if err != nil {
		return invalid("scoring_rules", "%v", err)
	}
	if err := spec.Validate(); err != nil {
		return invalid("scoring_rules", "%v", err)
	}
	if q.AnswerOptions == nil {
		q.AnswerOptions = map[string]any{}
	}
	if q.ScoringRules == nil {
		q.ScoringRules = map[string]any{}
	}
	return validateFeedbackRules("default_feedbacks_on_score", q.DefaultFeedbacks)
}

func validateFeedbackRules(field string, rules []scoring.FeedbackRule) error {
	for i, r := range rules {
		if !r.Comparison.Valid() {
			return invalid(field, "rule %d: comparison %q must be one of lt, lte, gt, gte, eq, neq", i, r.Comparison)
		}
	}
	return nil
}

func validateOutcomeRules(field string, rules []scoring.OutcomeRule) error {
	for i, r := range rules {
		if !r.Comparison.Valid() {
			return invalid(field, "rule %d: comparison %q must be one of lt, lte, gt, gte, eq, neq", i, r.Comparison)
		}
		if !r.Outcome.Valid() {
			return invalid(field, "rule %d: unknown outcome %q", i, r.Outcome)
		}
	}
	return nil
}
