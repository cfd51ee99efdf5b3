package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"narsus/internal/model"
	"narsus/internal/repository"
	"narsus/internal/scoring"
)

type fakeUsers struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]model.User
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	f.items[u.ID] = *u
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.items {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.User, error) {
	var out []*model.User
	for _, id := range ids {
		if u, err := f.GetByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeCourses struct {
	items []model.Course
}

func (f *fakeCourses) Create(_ context.Context, c *model.Course) error {
	for _, existing := range f.items {
		if existing.Code == c.Code {
			return repository.ErrDuplicate
		}
	}
	c.ID = primitive.NewObjectID()
	f.items = append(f.items, *c)
	return nil
}

func (f *fakeCourses) GetByID(_ context.Context, id primitive.ObjectID) (*model.Course, error) {
	for _, c := range f.items {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCourses) GetByCode(_ context.Context, code string) (*model.Course, error) {
	for _, c := range f.items {
		if c.Code == code {
			c := c
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCourses) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Course, error) {
	var out []*model.Course
	for _, id := range ids {
		if c, err := f.GetByID(ctx, id); err == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourses) List(context.Context) ([]*model.Course, error) {
	out := make([]*model.Course, len(f.items))
	for i := range f.items {
		c := f.items[i]
		out[i] = &c
	}
	return out, nil
}

func (f *fakeCourses) Update(_ context.Context, c *model.Course) error {
	for i := range f.items {
		if f.items[i].ID == c.ID {
			f.items[i] = *c
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeCourses) Delete(_ context.Context, id primitive.ObjectID) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeQuestions struct {
	items []model.Question
}

func (f *fakeQuestions) Create(_ context.Context, q *model.Question) error {
	q.ID = primitive.NewObjectID()
	f.items = append(f.items, *q)
	return nil
}

func (f *fakeQuestions) GetByID(_ context.Context, id primitive.ObjectID) (*model.Question, error) {
	for _, q := range f.items {
		if q.ID == id {
			q := q
			return &q, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeQuestions) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Question, error) {
	var out []*model.Question
	for _, id := range ids {
		if q, err := f.GetByID(ctx, id); err == nil {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestions) List(context.Context) ([]*model.Question, error) {
	out := make([]*model.Question, len(f.items))
	for i := range f.items {
		q := f.items[i]
		out[i] = &q
	}
	return out, nil
}

func (f *fakeQuestions) Update(_ context.Context, q *model.Question) error {
	for i := range f.items {
		if f.items[i].ID == q.ID {
			f.items[i] = *q
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeQuestions) Delete(_ context.Context, id primitive.ObjectID) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeQCAs struct {
	items []model.QCA
}

func (f *fakeQCAs) Create(_ context.Context, q *model.QCA) error {
	for _, existing := range f.items {
		if existing.QuestionID == q.QuestionID && existing.CourseID == q.CourseID {
			return repository.ErrDuplicate
		}
	}
	q.ID = primitive.NewObjectID()
	f.items = append(f.items, *q)
	return nil
}

func (f *fakeQCAs) GetByID(_ context.Context, id primitive.ObjectID) (*model.QCA, error) {
	for _, q := range f.items {
		if q.ID == id {
			q := q
			return &q, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeQCAs) where(match func(model.QCA) bool) []*model.QCA {
	var out []*model.QCA
	for _, q := range f.items {
		if match(q) {
			q := q
			out = append(out, &q)
		}
	}
	return out
}

func (f *fakeQCAs) List(_ context.Context, filter model.QCAFilter) ([]*model.QCA, error) {
	return f.where(func(q model.QCA) bool {
		return (filter.QuestionID.IsZero() || q.QuestionID == filter.QuestionID) &&
			(filter.CourseID.IsZero() || q.CourseID == filter.CourseID)
	}), nil
}

func (f *fakeQCAs) ListByCourses(_ context.Context, courseIDs []primitive.ObjectID) ([]*model.QCA, error) {
	return f.where(func(q model.QCA) bool {
		for _, id := range courseIDs {
			if q.CourseID == id {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeQCAs) Update(_ context.Context, q *model.QCA) error {
	for i := range f.items {
		if f.items[i].ID == q.ID {
			f.items[i].AssociationType = q.AssociationType
			f.items[i].Feedbacks = q.Feedbacks
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeQCAs) Delete(_ context.Context, id primitive.ObjectID) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeQCAs) deleteWhere(match func(model.QCA) bool) []*model.QCA {
	removed := f.where(match)
	kept := f.items[:0]
	for _, q := range f.items {
		if !match(q) {
			kept = append(kept, q)
		}
	}
	f.items = kept
	return removed
}

func (f *fakeQCAs) DeleteByQuestion(_ context.Context, id primitive.ObjectID) ([]*model.QCA, error) {
	return f.deleteWhere(func(q model.QCA) bool { return q.QuestionID == id }), nil
}

func (f *fakeQCAs) DeleteByCourse(_ context.Context, id primitive.ObjectID) ([]*model.QCA, error) {
	return f.deleteWhere(func(q model.QCA) bool { return q.CourseID == id }), nil
}

type fakeSurveys struct {
	items []model.Survey
}

func (f *fakeSurveys) Create(_ context.Context, s *model.Survey) error {
	s.ID = primitive.NewObjectID()
	s.CreatedAt = time.Now()
	f.items = append(f.items, *s)
	return nil
}

func (f *fakeSurveys) find(id primitive.ObjectID) *model.Survey {
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i]
		}
	}
	return nil
}

func (f *fakeSurveys) GetByID(_ context.Context, id primitive.ObjectID) (*model.Survey, error) {
	s := f.find(id)
	if s == nil {
		return nil, repository.ErrNotFound
	}
	c := *s
	c.CourseIDs = append([]primitive.ObjectID(nil), s.CourseIDs...)
	return &c, nil
}

func (f *fakeSurveys) List(_ context.Context, filter repository.SurveyFilter) ([]*model.Survey, error) {
	var out []*model.Survey
	for _, s := range f.items {
		if filter.PublishedOnly && !s.IsPublished {
			continue
		}
		s := s
		out = append(out, &s)
	}
	return out, nil
}

func (f *fakeSurveys) ListByCourse(_ context.Context, courseID primitive.ObjectID) ([]*model.Survey, error) {
	var out []*model.Survey
	for _, s := range f.items {
		if s.HasCourse(courseID) {
			s := s
			out = append(out, &s)
		}
	}
	return out, nil
}

func (f *fakeSurveys) Update(_ context.Context, s *model.Survey) error {
	stored := f.find(s.ID)
	if stored == nil {
		return repository.ErrNotFound
	}
	*stored = *s
	return nil
}

func (f *fakeSurveys) SetMaxScores(_ context.Context, id primitive.ObjectID, perCourse map[string]float64, overall float64) error {
	if s := f.find(id); s != nil {
		s.MaxScoresPerCourse = perCourse
		s.MaxOverallSurveyScore = overall
	}
	return nil
}

func (f *fakeSurveys) RemoveCourseFromDrafts(_ context.Context, courseID primitive.ObjectID) error {
	for i := range f.items {
		s := &f.items[i]
		if s.IsPublished || !s.HasCourse(courseID) {
			continue
		}
		kept := make([]primitive.ObjectID, 0, len(s.CourseIDs))
		for _, id := range s.CourseIDs {
			if id != courseID {
				kept = append(kept, id)
			}
		}
		s.CourseIDs = kept
		delete(s.CourseSkillTotalScoreThresholds, courseID.Hex())
		delete(s.CourseOutcomeThresholds, courseID.Hex())
		delete(s.MaxScoresPerCourse, courseID.Hex())
	}
	return nil
}

func (f *fakeSurveys) Delete(_ context.Context, id primitive.ObjectID) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeAttempts struct {
	mu      sync.Mutex
	items   []model.SurveyAttempt
	markErr error
}

func (f *fakeAttempts) Create(_ context.Context, a *model.SurveyAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = primitive.NewObjectID()
	f.items = append(f.items, *a)
	return nil
}

func (f *fakeAttempts) GetByID(_ context.Context, id primitive.ObjectID) (*model.SurveyAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.items {
		if a.ID == id {
			a := a
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAttempts) FindOpen(_ context.Context, studentID, surveyID primitive.ObjectID) (*model.SurveyAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.items {
		if a.StudentID == studentID && a.SurveyID == surveyID && !a.IsSubmitted {
			a := a
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAttempts) where(match func(model.SurveyAttempt) bool) []*model.SurveyAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.SurveyAttempt
	for i := len(f.items) - 1; i >= 0; i-- {
		if a := f.items[i]; match(a) {
			out = append(out, &a)
		}
	}
	return out
}

func (f *fakeAttempts) ListByStudent(_ context.Context, studentID primitive.ObjectID, _ model.Page) ([]*model.SurveyAttempt, error) {
	return f.where(func(a model.SurveyAttempt) bool { return a.StudentID == studentID }), nil
}

func (f *fakeAttempts) ListSubmittedBySurvey(_ context.Context, surveyID primitive.ObjectID, _ model.Page) ([]*model.SurveyAttempt, error) {
	return f.where(func(a model.SurveyAttempt) bool { return a.SurveyID == surveyID && a.IsSubmitted }), nil
}

func (f *fakeAttempts) CountSubmittedBySurvey(ctx context.Context, surveyID primitive.ObjectID) (int64, error) {
	list, _ := f.ListSubmittedBySurvey(ctx, surveyID, model.Page{})
	return int64(len(list)), nil
}

func (f *fakeAttempts) MarkSubmitted(_ context.Context, id primitive.ObjectID, sub *model.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	for i := range f.items {
		if f.items[i].ID == id && !f.items[i].IsSubmitted {
			sub.Apply(&f.items[i])
			return nil
		}
	}
	return repository.ErrStateChanged
}

func (f *fakeAttempts) DeleteUnsubmittedBySurvey(_ context.Context, surveyID primitive.ObjectID) ([]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed []primitive.ObjectID
	kept := f.items[:0]
	for _, a := range f.items {
		if a.SurveyID == surveyID && !a.IsSubmitted {
			removed = append(removed, a.ID)
			continue
		}
		kept = append(kept, a)
	}
	f.items = kept
	return removed, nil
}

type fakeAnswers struct {
	mu    sync.Mutex
	items []model.StudentAnswer
}

func (f *fakeAnswers) Upsert(_ context.Context, a *model.StudentAnswer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].SurveyAttemptID == a.SurveyAttemptID && f.items[i].QCAID == a.QCAID {
			a.ID = f.items[i].ID
			f.items[i] = *a
			return nil
		}
	}
	a.ID = primitive.NewObjectID()
	f.items = append(f.items, *a)
	return nil
}

func (f *fakeAnswers) ListByAttempt(ctx context.Context, attemptID primitive.ObjectID) ([]*model.StudentAnswer, error) {
	return f.ListByAttempts(ctx, []primitive.ObjectID{attemptID})
}

func (f *fakeAnswers) ListByAttempts(_ context.Context, ids []primitive.ObjectID) ([]*model.StudentAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.StudentAnswer
	for _, a := range f.items {
		for _, id := range ids {
			if a.SurveyAttemptID == id {
				a := a
				out = append(out, &a)
			}
		}
	}
	return out, nil
}

func (f *fakeAnswers) SetScores(_ context.Context, attemptID primitive.ObjectID, scores []model.AnswerScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range scores {
		score := s.Score
		found := false
		for i := range f.items {
			if f.items[i].SurveyAttemptID == attemptID && f.items[i].QCAID == s.QCAID {
				f.items[i].ScoreAchieved = &score
				f.items[i].IsUnanswered = s.Unanswered
				found = true
			}
		}
		if !found {
			f.items = append(f.items, model.StudentAnswer{
				ID:              primitive.NewObjectID(),
				SurveyAttemptID: attemptID,
				QCAID:           s.QCAID,
				QuestionID:      s.QuestionID,
				AnswerValue:     s.AnswerValue,
				ScoreAchieved:   &score,
				IsUnanswered:    s.Unanswered,
			})
		}
	}
	return nil
}

func (f *fakeAnswers) DeleteByAttempts(_ context.Context, ids []primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[:0]
	for _, a := range f.items {
		drop := false
		for _, id := range ids {
			if a.SurveyAttemptID == id {
				drop = true
			}
		}
		if !drop {
			kept = append(kept, a)
		}
	}
	f.items = kept
	return nil
}

type fakeSurveyCache struct {
	items       map[string]*model.SurveyWithQuestions
	err         error
	invalidated []string
}

func (f *fakeSurveyCache) Get(_ context.Context, id string) (*model.SurveyWithQuestions, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[id], nil
}

func (f *fakeSurveyCache) Set(_ context.Context, s *model.SurveyWithQuestions) error {
	if f.err != nil {
		return f.err
	}
	f.items[s.ID.Hex()] = s
	return nil
}

func (f *fakeSurveyCache) Invalidate(_ context.Context, ids ...string) error {
	f.invalidated = append(f.invalidated, ids...)
	for _, id := range ids {
		delete(f.items, id)
	}
	return f.err
}

type fakeResultCache struct {
	mu    sync.Mutex
	items map[string]*model.SurveyAttempt
}

func (f *fakeResultCache) Get(_ context.Context, id string) (*model.SurveyAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id], nil
}

func (f *fakeResultCache) Set(_ context.Context, a *model.SurveyAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[a.ID.Hex()] = a
	return nil
}

func (f *fakeResultCache) Delete(_ context.Context, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.items, id)
	}
	return nil
}

type fakeLock struct {
	mu   sync.Mutex
	held map[string]string
}

func (f *fakeLock) Acquire(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.held[id]; ok {
		return "", nil
	}
	token := primitive.NewObjectID().Hex()
	f.held[id] = token
	return token, nil
}

func (f *fakeLock) Release(_ context.Context, id, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[id] == token {
		delete(f.held, id)
	}
	return nil
}

type sentEvent struct {
	ownerID, surveyID string
	event             *model.AttemptSubmittedEvent
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (f *fakeBroadcaster) BroadcastSubmission(ownerID, surveyID string, event *model.AttemptSubmittedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEvent{ownerID, surveyID, event})
}

type fakeRecorder struct {
	mu       sync.Mutex
	count    int
	outcomes []scoring.OutcomeCategory
}

func (f *fakeRecorder) AttemptSubmitted(outcomes map[string]scoring.OutcomeCategory, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	for _, o := range outcomes {
		f.outcomes = append(f.outcomes, o)
	}
}

type testEnv struct {
	users     *fakeUsers
	courses   *fakeCourses
	questions *fakeQuestions
	qcas      *fakeQCAs
	surveys   *fakeSurveys
	attempts  *fakeAttempts
	answers   *fakeAnswers

	surveyCache *fakeSurveyCache
	results     *fakeResultCache
	lock        *fakeLock
	broadcaster *fakeBroadcaster
	recorder    *fakeRecorder

	auth       *AuthService
	courseSvc  *CourseService
	questionSv *QuestionService
	qcaSvc     *QCAService
	surveySvc  *SurveyService
	attemptSvc *AttemptService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	e := &testEnv{
		users:       &fakeUsers{items: map[primitive.ObjectID]model.User{}},
		courses:     &fakeCourses{},
		questions:   &fakeQuestions{},
		qcas:        &fakeQCAs{},
		surveys:     &fakeSurveys{},
		attempts:    &fakeAttempts{},
		answers:     &fakeAnswers{},
		surveyCache: &fakeSurveyCache{items: map[string]*model.SurveyWithQuestions{}},
		results:     &fakeResultCache{items: map[string]*model.SurveyAttempt{}},
		lock:        &fakeLock{held: map[string]string{}},
		broadcaster: &fakeBroadcaster{},
		recorder:    &fakeRecorder{},
	}
	upkeep := NewSurveyUpkeep(e.surveys, e.qcas, e.surveyCache, log)
	e.auth = NewAuthService(e.users, "test-secret", time.Hour, log)
	e.courseSvc = NewCourseService(e.courses, e.qcas, e.surveys, upkeep, log)
	e.questionSv = NewQuestionService(e.questions, e.qcas, upkeep, log)
	e.qcaSvc = NewQCAService(e.qcas, e.questions, e.courses, upkeep, log)
	e.surveySvc = NewSurveyService(e.surveys, e.courses, e.questions, e.qcas, e.attempts, e.answers, e.surveyCache, upkeep, log)
	e.attemptSvc = NewAttemptService(AttemptDeps{
		Attempts:          e.attempts,
		Answers:           e.answers,
		Surveys:           e.surveys,
		QCAs:              e.qcas,
		Questions:         e.questions,
		Courses:           e.courses,
		Users:             e.users,
		Results:           e.results,
		Lock:              e.lock,
		Broadcaster:       e.broadcaster,
		Recorder:          e.recorder,
		CompletionMessage: "thanks",
		Log:               log,
	})
	return e
}
