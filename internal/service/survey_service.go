package service

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"narsus/internal/cache"
	"narsus/internal/model"
	"narsus/internal/repository"
	"narsus/internal/scoring"
)

// Viewer is the authenticated caller of a service operation
type Viewer struct {
	ID   primitive.ObjectID
	Role model.Role
}

// IsTeacher reports whether the viewer has the teacher role
func (v Viewer) IsTeacher() bool { return v.Role == model.RoleTeacher }

// SurveyService manages surveys and builds the survey-for-taking view
type SurveyService struct {
	surveys   repository.SurveyRepo
	courses   repository.CourseRepo
	questions repository.QuestionRepo
	qcas      repository.QCARepo
	attempts  repository.AttemptRepo
	answers   repository.AnswerRepo
	cache     cache.SurveyCache
	upkeep    *SurveyUpkeep
	log       *zap.Logger
}

// NewSurveyService creates a new survey service
func NewSurveyService(
	surveys repository.SurveyRepo,
	courses repository.CourseRepo,
	questions repository.QuestionRepo,
	qcas repository.QCARepo,
	attempts repository.AttemptRepo,
	answers repository.AnswerRepo,
	surveyCache cache.SurveyCache,
	upkeep *SurveyUpkeep,
	log *zap.Logger,
) *SurveyService {
	return &SurveyService{
		surveys:   surveys,
		courses:   courses,
		questions: questions,
		qcas:      qcas,
		attempts:  attempts,
		answers:   answers,
		cache:     surveyCache,
		upkeep:    upkeep,
		log:       log,
	}
}

// Create adds a draft survey owned by the teacher
func (s *SurveyService) Create(ctx context.Context, teacherID primitive.ObjectID, req *model.SurveyCreate) (*model.Survey, error) {
	courseIDs, err := parseIDs("course_ids", req.CourseIDs)
	if err != nil {
		return nil, err
	}
	survey := &model.Survey{
		Title:                           strings.TrimSpace(req.Title),
		Description:                     req.Description,
		CourseIDs:                       courseIDs,
		CreatedBy:                       teacherID,
		CourseSkillTotalScoreThresholds: req.CourseSkillTotalScoreThresholds,
		CourseOutcomeThresholds:         req.CourseOutcomeThresholds,
		OverallScoreFeedbacks:           req.OverallScoreFeedbacks,
	}
	if err := s.prepare(ctx, survey); err != nil {
		return nil, err
	}
	if err := s.surveys.Create(ctx, survey); err != nil {
		return nil, translate(err, "survey")
	}
	s.log.Info("survey created", zap.String("survey_id", survey.ID.Hex()), zap.Int("courses", len(courseIDs)))
	return survey, nil
}

// Get returns a survey, with its question details when includeQuestions is
// set. Students only see published surveys.
func (s *SurveyService) Get(ctx context.Context, viewer Viewer, id primitive.ObjectID, includeQuestions bool) (*model.SurveyWithQuestions, error) {
	if includeQuestions {
		if cached, err := s.cache.Get(ctx, id.Hex()); err != nil {
			s.log.Warn("survey cache read failed", zap.String("survey_id", id.Hex()), zap.Error(err))
		} else if cached != nil {
			if !cached.IsPublished && !viewer.IsTeacher() {
				return nil, ErrNotPublished
			}
			return cached, nil
		}
	}

	survey, err := s.surveys.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "survey")
	}
	if !survey.IsPublished && !viewer.IsTeacher() {
		return nil, ErrNotPublished
	}
	out := &model.SurveyWithQuestions{Survey: survey}
	if !includeQuestions {
		return out, nil
	}

	if out.Questions, err = s.QuestionDetails(ctx, survey); err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, out); err != nil {
		s.log.Warn("survey cache write failed", zap.String("survey_id", id.Hex()), zap.Error(err))
	}
	return out, nil
}

// List returns surveys newest first. Students only see published surveys.
func (s *SurveyService) List(ctx context.Context, viewer Viewer, publishedOnly bool) ([]*model.Survey, error) {
	filter := repository.SurveyFilter{PublishedOnly: publishedOnly || !viewer.IsTeacher()}
	surveys, err := s.surveys.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	return surveys, nil
}

// Update changes the given fields of a survey the teacher owns
func (s *SurveyService) Update(ctx context.Context, teacherID, id primitive.ObjectID, req *model.SurveyUpdate) (*model.Survey, error) {
	survey, err := s.owned(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		survey.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		survey.Description = *req.Description
	}
	if req.CourseIDs != nil {
		if survey.CourseIDs, err = parseIDs("course_ids", *req.CourseIDs); err != nil {
			return nil, err
		}
	}
	if req.IsPublished != nil {
		survey.IsPublished = *req.IsPublished
	}
	if req.CourseSkillTotalScoreThresholds != nil {
		survey.CourseSkillTotalScoreThresholds = *req.CourseSkillTotalScoreThresholds
	}
	if req.CourseOutcomeThresholds != nil {
		survey.CourseOutcomeThresholds = *req.CourseOutcomeThresholds
	}
	if req.OverallScoreFeedbacks != nil {
		survey.OverallScoreFeedbacks = *req.OverallScoreFeedbacks
	}
	if err := s.prepare(ctx, survey); err != nil {
		return nil, err
	}
	if err := s.surveys.Update(ctx, survey); err != nil {
		return nil, translate(err, "survey")
	}
	s.upkeep.invalidate(ctx, survey.ID.Hex())
	return survey, nil
}

// Publish makes a survey available to students
func (s *SurveyService) Publish(ctx context.Context, teacherID, id primitive.ObjectID) (*model.Survey, error) {
	return s.setPublished(ctx, teacherID, id, true)
}

// Unpublish hides a survey from students
func (s *SurveyService) Unpublish(ctx context.Context, teacherID, id primitive.ObjectID) (*model.Survey, error) {
	return s.setPublished(ctx, teacherID, id, false)
}

func (s *SurveyService) setPublished(ctx context.Context, teacherID, id primitive.ObjectID, published bool) (*model.Survey, error) {
	survey, err := s.owned(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	if survey.IsPublished == published {
		return survey, nil
	}
	survey.IsPublished = published
	if err := s.surveys.Update(ctx, survey); err != nil {
		return nil, translate(err, "survey")
	}
	s.upkeep.invalidate(ctx, survey.ID.Hex())
	s.log.Info("survey publication changed", zap.String("survey_id", id.Hex()), zap.Bool("published", published))
	return survey, nil
}

// Delete removes a survey that has no submitted attempts, together with its
// open attempts and their answers
func (s *SurveyService) Delete(ctx context.Context, teacherID, id primitive.ObjectID) error {
	if _, err := s.owned(ctx, teacherID, id); err != nil {
		return err
	}
	submitted, err := s.attempts.CountSubmittedBySurvey(ctx, id)
	if err != nil {
		return fmt.Errorf("count submitted attempts: %w", err)
	}
	if submitted > 0 {
		return fmt.Errorf("%w: survey has %d submitted attempts", ErrConflict, submitted)
	}

	open, err := s.attempts.DeleteUnsubmittedBySurvey(ctx, id)
	if err != nil {
		return fmt.Errorf("delete open attempts: %w", err)
	}
	if err := s.answers.DeleteByAttempts(ctx, open); err != nil {
		return fmt.Errorf("delete answers: %w", err)
	}
	if err := s.surveys.Delete(ctx, id); err != nil {
		return translate(err, "survey")
	}
	s.upkeep.invalidate(ctx, id.Hex())
	s.log.Info("survey deleted", zap.String("survey_id", id.Hex()), zap.Int("open_attempts_removed", len(open)))
	return nil
}

// QuestionDetails lists the survey's questions once each, in QCA order. A
// question linked to several survey courses carries all its QCA and course ids.
func (s *SurveyService) QuestionDetails(ctx context.Context, survey *model.Survey) ([]model.SurveyQuestionDetail, error) {
	qcas, err := s.qcas.ListByCourses(ctx, survey.CourseIDs)
	if err != nil {
		return nil, fmt.Errorf("list qcas: %w", err)
	}

	var order []primitive.ObjectID
	byQuestion := make(map[primitive.ObjectID]*model.SurveyQuestionDetail)
	for _, qca := range qcas {
		d, ok := byQuestion[qca.QuestionID]
		if !ok {
			d = &model.SurveyQuestionDetail{
				QCAID:      qca.ID.Hex(),
				CourseID:   qca.CourseID.Hex(),
				QuestionID: qca.QuestionID.Hex(),
			}
			byQuestion[qca.QuestionID] = d
			order = append(order, qca.QuestionID)
		}
		d.QCAIDs = append(d.QCAIDs, qca.ID.Hex())
		d.CourseIDs = append(d.CourseIDs, qca.CourseID.Hex())
	}

	questions, err := s.questions.GetByIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	found := make(map[primitive.ObjectID]*model.Question, len(questions))
	for _, q := range questions {
		found[q.ID] = q
	}

	details := make([]model.SurveyQuestionDetail, 0, len(order))
	for _, qid := range order {
		q, ok := found[qid]
		if !ok {
			s.log.Warn("qca references missing question", zap.String("survey_id", survey.ID.Hex()), zap.String("question_id", qid.Hex()))
			continue
		}
		d := byQuestion[qid]
		d.Title = q.Title
		d.Details = q.Details
		d.AnswerType = q.AnswerType
		d.AnswerOptions = q.AnswerOptions
		details = append(details, *d)
	}
	return details, nil
}

func (s *SurveyService) owned(ctx context.Context, teacherID, id primitive.ObjectID) (*model.Survey, error) {
	survey, err := s.surveys.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "survey")
	}
	if survey.CreatedBy != teacherID {
		return nil, fmt.Errorf("%w: only the survey creator can change it", ErrForbidden)
	}
	return survey, nil
}

// prepare validates a survey and derives its max scores
func (s *SurveyService) prepare(ctx context.Context, survey *model.Survey) error {
	if survey.Title == "" {
		return invalid("title", "must not be empty")
	}
	if len(survey.CourseIDs) == 0 {
		return invalid("course_ids", "must list at least one course")
	}
	courses, err := s.courses.GetByIDs(ctx, survey.CourseIDs)
	if err != nil {
		return fmt.Errorf("load courses: %w", err)
	}
	if len(courses) != len(survey.CourseIDs) {
		return invalid("course_ids", "one or more courses do not exist")
	}

	inSurvey := make(map[string]struct{}, len(survey.CourseIDs))
	for _, id := range survey.CourseIDs {
		inSurvey[id.Hex()] = struct{}{}
	}
	for key, rules := range survey.CourseSkillTotalScoreThresholds {
		if _, ok := inSurvey[key]; !ok {
			return invalid("course_skill_total_score_thresholds", "course %s is not part of the survey", key)
		}
		if err := validateFeedbackRules("course_skill_total_score_thresholds", rules); err != nil {
			return err
		}
	}
	for key, rules := range survey.CourseOutcomeThresholds {
		if _, ok := inSurvey[key]; !ok {
			return invalid("course_outcome_thresholds", "course %s is not part of the survey", key)
		}
		if err := validateOutcomeRules("course_outcome_thresholds", rules); err != nil {
			return err
		}
	}
	if err := validateFeedbackRules("overall_score_feedbacks", survey.OverallScoreFeedbacks); err != nil {
		return err
	}
	if survey.CourseSkillTotalScoreThresholds == nil {
		survey.CourseSkillTotalScoreThresholds = map[string][]scoring.FeedbackRule{}
	}
	if survey.CourseOutcomeThresholds == nil {
		survey.CourseOutcomeThresholds = map[string][]scoring.OutcomeRule{}
	}

	survey.MaxScoresPerCourse, survey.MaxOverallSurveyScore, err = s.upkeep.maxScores(ctx, survey.CourseIDs)
	return err
}
