package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"narsus/internal/cache"
	"narsus/internal/model"
	"narsus/internal/repository"
	"narsus/internal/scoring"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 100
)

// AttemptDeps are the collaborators of AttemptService
type AttemptDeps struct {
	Attempts    repository.AttemptRepo
	Answers     repository.AnswerRepo
	Surveys     repository.SurveyRepo
	QCAs        repository.QCARepo
	Questions   repository.QuestionRepo
	Courses     repository.CourseRepo
	Users       repository.UserRepo
	Results     cache.ResultCache
	Lock        cache.SubmitLock
	Broadcaster Broadcaster
	Recorder    SubmissionRecorder
	// CompletionMessage is the overall feedback when no overall rule matches
	CompletionMessage string
	Log               *zap.Logger
}

// AttemptService runs a student's attempt from start to scored submission
type AttemptService struct {
	AttemptDeps
	now func() time.Time
}

// NewAttemptService creates a new attempt service
func NewAttemptService(deps AttemptDeps) *AttemptService {
	if deps.Broadcaster == nil {
		deps.Broadcaster = nopBroadcaster{}
	}
	return &AttemptService{
		AttemptDeps: deps,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start opens an attempt on a published survey. A student with an open
// attempt on the survey gets that attempt back.
func (s *AttemptService) Start(ctx context.Context, studentID primitive.ObjectID, surveyIDHex string) (*model.SurveyAttempt, error) {
	surveyID, err := ParseID("survey_id", surveyIDHex)
	if err != nil {
		return nil, err
	}
	survey, err := s.Surveys.GetByID(ctx, surveyID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotPublished
	}
	if err != nil {
		return nil, fmt.Errorf("load survey: %w", err)
	}
	if !survey.IsPublished {
		return nil, ErrNotPublished
	}

	open, err := s.Attempts.FindOpen(ctx, studentID, surveyID)
	if err == nil {
		if open.Answers, err = s.Answers.ListByAttempt(ctx, open.ID); err != nil {
			return nil, fmt.Errorf("load answers: %w", err)
		}
		return open, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find open attempt: %w", err)
	}

	attempt := &model.SurveyAttempt{
		StudentID: studentID,
		SurveyID:  surveyID,
		StartedAt: s.now(),
	}
	if err := s.Attempts.Create(ctx, attempt); err != nil {
		return nil, translate(err, "survey attempt")
	}
	s.Log.Info("attempt started", zap.String("attempt_id", attempt.ID.Hex()), zap.String("survey_id", surveyID.Hex()))
	return attempt, nil
}

// SaveAnswers stores answers of an open attempt. Each answer is stored once
// for every QCA of its question in the survey.
func (s *AttemptService) SaveAnswers(ctx context.Context, studentID, attemptID primitive.ObjectID, req *model.SaveAnswersRequest) ([]*model.StudentAnswer, error) {
	attempt, err := s.ownOpenAttempt(ctx, studentID, attemptID)
	if err != nil {
		return nil, err
	}
	survey, err := s.Surveys.GetByID(ctx, attempt.SurveyID)
	if err != nil {
		return nil, translate(err, "survey")
	}
	qcas, err := s.QCAs.ListByCourses(ctx, survey.CourseIDs)
	if err != nil {
		return nil, fmt.Errorf("list qcas: %w", err)
	}
	byID := make(map[primitive.ObjectID]*model.QCA, len(qcas))
	byQuestion := make(map[primitive.ObjectID][]*model.QCA)
	for _, q := range qcas {
		byID[q.ID] = q
		byQuestion[q.QuestionID] = append(byQuestion[q.QuestionID], q)
	}

	questions, err := s.Questions.GetByIDs(ctx, keysOf(byQuestion))
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	questionByID := make(map[primitive.ObjectID]*model.Question, len(questions))
	for _, q := range questions {
		questionByID[q.ID] = q
	}

	type pending struct {
		question *model.Question
		value    any
	}
	batch := make([]pending, 0, len(req.Answers))
	for _, in := range req.Answers {
		qcaID, err := ParseID("qca_id", in.QCAID)
		if err != nil {
			return nil, err
		}
		questionID, err := ParseID("question_id", in.QuestionID)
		if err != nil {
			return nil, err
		}
		qca, ok := byID[qcaID]
		if !ok || qca.QuestionID != questionID {
			return nil, invalid("answers", "qca %s does not link question %s in this survey", in.QCAID, in.QuestionID)
		}
		question, ok := questionByID[questionID]
		if !ok {
			return nil, invalid("answers", "question %s no longer exists", in.QuestionID)
		}
		if err := checkAnswer(question, in.AnswerValue); err != nil {
			return nil, invalid("answers", "Q '%s': %v", question.Title, err)
		}
		batch = append(batch, pending{question: question, value: in.AnswerValue})
	}

	for _, p := range batch {
		for _, qca := range byQuestion[p.question.ID] {
			answer := &model.StudentAnswer{
				SurveyAttemptID: attempt.ID,
				QCAID:           qca.ID,
				QuestionID:      p.question.ID,
				AnswerValue:     p.value,
			}
			if err := s.Answers.Upsert(ctx, answer); err != nil {
				return nil, fmt.Errorf("save answer: %w", err)
			}
		}
	}

	answers, err := s.Answers.ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	return answers, nil
}

func checkAnswer(q *model.Question, value any) error {
	spec, err := scoring.ParseSpec(q.AnswerType, q.AnswerOptions, q.ScoringRules)
	if err != nil {
		return err
	}
	a, err := scoring.ParseAnswer(q.AnswerType, value)
	if err != nil {
		return err
	}
	return spec.CheckAnswer(a)
}

// Submit scores an open attempt and marks it submitted. Concurrent submits of
// one attempt are refused while the first holds the lock, and the stored
// submitted flag guarantees a single scoring write.
func (s *AttemptService) Submit(ctx context.Context, studentID, attemptID primitive.ObjectID) (*model.SurveyAttempt, error) {
	token, err := s.Lock.Acquire(ctx, attemptID.Hex())
	if err != nil {
		return nil, fmt.Errorf("acquire submit lock: %w", err)
	}
	if token == "" {
		return nil, ErrSubmitInProgress
	}
	defer func() {
		if err := s.Lock.Release(context.WithoutCancel(ctx), attemptID.Hex(), token); err != nil {
			s.Log.Warn("release submit lock", zap.String("attempt_id", attemptID.Hex()), zap.Error(err))
		}
	}()

	attempt, err := s.ownOpenAttempt(ctx, studentID, attemptID)
	if err != nil {
		return nil, err
	}
	survey, err := s.Surveys.GetByID(ctx, attempt.SurveyID)
	if err != nil {
		return nil, translate(err, "survey")
	}

	input, err := s.scoringInput(ctx, survey, attempt.ID)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	result, err := scoring.ScoreAttempt(input)
	if err != nil {
		s.Log.Error("scoring aborted", zap.String("attempt_id", attempt.ID.Hex()), zap.Error(err))
		return nil, fmt.Errorf("score attempt: %w", err)
	}
	took := time.Since(started)

	sub := &model.Submission{
		SubmittedAt:      s.now(),
		CourseScores:     result.CourseScores,
		CourseFeedback:   result.CourseFeedback,
		DetailedFeedback: result.DetailedFeedback,
		CourseOutcomes:   result.CourseOutcomes,
		OverallFeedback:  result.OverallFeedback,
		OverallScore:     result.OverallScore,
	}
	if err := s.Attempts.MarkSubmitted(ctx, attempt.ID, sub); err != nil {
		if errors.Is(err, repository.ErrStateChanged) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("mark submitted: %w", err)
	}
	sub.Apply(attempt)

	// scores are written only by the pass that won the submitted flag
	scores := make([]model.AnswerScore, 0, len(result.Answers))
	for _, a := range result.Answers {
		qcaID, _ := primitive.ObjectIDFromHex(a.QCAID)
		questionID, _ := primitive.ObjectIDFromHex(a.QuestionID)
		scores = append(scores, model.AnswerScore{
			QCAID:       qcaID,
			QuestionID:  questionID,
			AnswerValue: a.Value,
			Score:       a.Score,
			Unanswered:  a.Unanswered,
		})
	}
	if err := s.Answers.SetScores(ctx, attempt.ID, scores); err != nil {
		s.Log.Error("store answer scores", zap.String("attempt_id", attempt.ID.Hex()), zap.Error(err))
		return nil, fmt.Errorf("store answer scores: %w", err)
	}

	if attempt.Answers, err = s.Answers.ListByAttempt(ctx, attempt.ID); err != nil {
		s.Log.Warn("reload answers after submit", zap.String("attempt_id", attempt.ID.Hex()), zap.Error(err))
	} else if err := s.AttemptDeps.Results.Set(ctx, attempt); err != nil {
		s.Log.Warn("result cache write failed", zap.String("attempt_id", attempt.ID.Hex()), zap.Error(err))
	}

	s.announce(ctx, survey, attempt)
	if s.Recorder != nil {
		s.Recorder.AttemptSubmitted(result.CourseOutcomes, took)
	}
	s.Log.Info("attempt scored",
		zap.String("attempt_id", attempt.ID.Hex()),
		zap.String("survey_id", survey.ID.Hex()),
		zap.Float64("overall_score", result.OverallScore),
		zap.Any("outcomes", result.CourseOutcomes),
		zap.Duration("took", took),
	)
	return attempt, nil
}

// scoringInput gathers everything the engine needs for one attempt
func (s *AttemptService) scoringInput(ctx context.Context, survey *model.Survey, attemptID primitive.ObjectID) (scoring.AttemptInput, error) {
	qcas, err := s.QCAs.ListByCourses(ctx, survey.CourseIDs)
	if err != nil {
		return scoring.AttemptInput{}, fmt.Errorf("list qcas: %w", err)
	}
	questionIDs := make(map[primitive.ObjectID][]*model.QCA)
	views := make([]scoring.QCA, len(qcas))
	for i, q := range qcas {
		questionIDs[q.QuestionID] = append(questionIDs[q.QuestionID], q)
		views[i] = q.ScoringView()
	}

	questions, err := s.Questions.GetByIDs(ctx, keysOf(questionIDs))
	if err != nil {
		return scoring.AttemptInput{}, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[string]scoring.Question, len(questions))
	for _, q := range questions {
		byID[q.ID.Hex()] = q.ScoringView()
	}

	stored, err := s.Answers.ListByAttempt(ctx, attemptID)
	if err != nil {
		return scoring.AttemptInput{}, fmt.Errorf("load answers: %w", err)
	}
	answers := make(map[string]any, len(stored))
	for _, a := range stored {
		answers[a.QCAID.Hex()] = a.AnswerValue
	}

	return scoring.AttemptInput{
		CourseIDs:            survey.CourseKeys(),
		QCAs:                 views,
		Questions:            byID,
		Answers:              answers,
		CourseFeedbackRules:  survey.CourseSkillTotalScoreThresholds,
		CourseOutcomeRules:   survey.CourseOutcomeThresholds,
		OverallFeedbackRules: survey.OverallScoreFeedbacks,
		CompletionMessage:    s.CompletionMessage,
	}, nil
}

func (s *AttemptService) announce(ctx context.Context, survey *model.Survey, attempt *model.SurveyAttempt) {
	event := &model.AttemptSubmittedEvent{
		Type:         model.EventAttemptSubmitted,
		AttemptID:    attempt.ID.Hex(),
		SurveyID:     survey.ID.Hex(),
		StudentID:    attempt.StudentID.Hex(),
		Outcomes:     attempt.CourseOutcomeCategorization,
		SubmittedAt:  *attempt.SubmittedAt,
		OverallScore: *attempt.ActualOverallSurveyScore,
	}
	if student, err := s.Users.GetByID(ctx, attempt.StudentID); err == nil {
		event.StudentDisplayName = student.DisplayName
	}
	s.Broadcaster.BroadcastSubmission(survey.CreatedBy.Hex(), survey.ID.Hex(), event)
}

// Results returns a submitted attempt to its student or to the teacher who
// owns the survey
func (s *AttemptService) Results(ctx context.Context, viewer Viewer, attemptID primitive.ObjectID) (*model.AttemptResult, error) {
	attempt, cached := s.cachedResult(ctx, attemptID)
	if attempt == nil {
		var err error
		if attempt, err = s.Attempts.GetByID(ctx, attemptID); err != nil {
			return nil, translate(err, "survey attempt")
		}
	}

	survey, err := s.Surveys.GetByID(ctx, attempt.SurveyID)
	if err != nil {
		return nil, translate(err, "survey")
	}
	isOwner := attempt.StudentID == viewer.ID
	isSurveyTeacher := viewer.IsTeacher() && survey.CreatedBy == viewer.ID
	if !isOwner && !isSurveyTeacher {
		return nil, fmt.Errorf("%w: not authorized to view these results", ErrForbidden)
	}
	if !attempt.IsSubmitted {
		return nil, ErrNotSubmitted
	}

	if !cached {
		if attempt.Answers, err = s.Answers.ListByAttempt(ctx, attempt.ID); err != nil {
			return nil, fmt.Errorf("load answers: %w", err)
		}
		if err := s.AttemptDeps.Results.Set(ctx, attempt); err != nil {
			s.Log.Warn("result cache write failed", zap.String("attempt_id", attemptID.Hex()), zap.Error(err))
		}
	}

	out := &model.AttemptResult{
		SurveyAttempt:         attempt,
		SurveyTitle:           survey.Title,
		CourseNames:           make(map[string]string, len(survey.CourseIDs)),
		MaxScoresPerCourse:    survey.MaxScoresPerCourse,
		MaxOverallSurveyScore: survey.MaxOverallSurveyScore,
	}
	if student, err := s.Users.GetByID(ctx, attempt.StudentID); err == nil {
		out.StudentDisplayName = student.DisplayName
	}
	courses, err := s.Courses.GetByIDs(ctx, survey.CourseIDs)
	if err != nil {
		s.Log.Warn("load course names", zap.String("survey_id", survey.ID.Hex()), zap.Error(err))
	}
	for _, c := range courses {
		out.CourseNames[c.ID.Hex()] = c.Name
	}
	return out, nil
}

func (s *AttemptService) cachedResult(ctx context.Context, attemptID primitive.ObjectID) (*model.SurveyAttempt, bool) {
	attempt, err := s.AttemptDeps.Results.Get(ctx, attemptID.Hex())
	if err != nil {
		s.Log.Warn("result cache read failed", zap.String("attempt_id", attemptID.Hex()), zap.Error(err))
		return nil, false
	}
	return attempt, attempt != nil
}

// ListMine returns the student's attempts, newest first
func (s *AttemptService) ListMine(ctx context.Context, studentID primitive.ObjectID, page model.Page, includeAnswers bool) ([]*model.SurveyAttempt, error) {
	attempts, err := s.Attempts.ListByStudent(ctx, studentID, clampPage(page))
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if includeAnswers {
		if err := s.attachAnswers(ctx, attempts); err != nil {
			return nil, err
		}
	}
	return attempts, nil
}

// ListBySurvey returns the submitted attempts of a survey the teacher owns,
// newest submission first
func (s *AttemptService) ListBySurvey(ctx context.Context, teacherID, surveyID primitive.ObjectID, page model.Page, includeAnswers bool) ([]*model.SurveyAttempt, error) {
	survey, err := s.Surveys.GetByID(ctx, surveyID)
	if err != nil {
		return nil, translate(err, "survey")
	}
	if survey.CreatedBy != teacherID {
		return nil, fmt.Errorf("%w: only the survey creator can list its attempts", ErrForbidden)
	}
	attempts, err := s.Attempts.ListSubmittedBySurvey(ctx, surveyID, clampPage(page))
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if includeAnswers {
		if err := s.attachAnswers(ctx, attempts); err != nil {
			return nil, err
		}
	}
	return attempts, nil
}

func (s *AttemptService) attachAnswers(ctx context.Context, attempts []*model.SurveyAttempt) error {
	ids := make([]primitive.ObjectID, len(attempts))
	index := make(map[primitive.ObjectID]*model.SurveyAttempt, len(attempts))
	for i, a := range attempts {
		ids[i] = a.ID
		index[a.ID] = a
	}
	answers, err := s.Answers.ListByAttempts(ctx, ids)
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}
	for _, ans := range answers {
		if a, ok := index[ans.SurveyAttemptID]; ok {
			a.Answers = append(a.Answers, ans)
		}
	}
	return nil
}

// ownOpenAttempt loads an attempt that belongs to the student and is still
// open. Another student's attempt reads as not found.
func (s *AttemptService) ownOpenAttempt(ctx context.Context, studentID, attemptID primitive.ObjectID) (*model.SurveyAttempt, error) {
	attempt, err := s.Attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, translate(err, "survey attempt")
	}
	if attempt.StudentID != studentID {
		return nil, fmt.Errorf("survey attempt: %w", ErrNotFound)
	}
	if attempt.IsSubmitted {
		return nil, ErrAlreadySubmitted
	}
	return attempt, nil
}

func clampPage(p model.Page) model.Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

func keysOf[V any](m map[primitive.ObjectID]V) []primitive.ObjectID {
	keys := make([]primitive.ObjectID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
