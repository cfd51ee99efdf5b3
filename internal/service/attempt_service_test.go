package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"narsus/internal/model"
	"narsus/internal/repository"
	"narsus/internal/scoring"
)

type fixture struct {
	teacher, student primitive.ObjectID
	c1, c2           *model.Course
	q1, q2           *model.Question
	q1c1, q1c2, q2c1 *model.QCA
	survey           *model.Survey
}

func addUser(t *testing.T, e *testEnv, name string, role model.Role) primitive.ObjectID {
	t.Helper()
	u := &model.User{Username: name, DisplayName: name + " display", Role: role}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func seed(t *testing.T, e *testEnv) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		teacher: addUser(t, e, "teacher", model.RoleTeacher),
		student: addUser(t, e, "student", model.RoleStudent),
	}
	var err error
	if f.c1, err = e.courseSvc.Create(ctx, f.teacher, &model.CourseCreate{Name: "Networking", Code: "NET101"}); err != nil {
		t.Fatalf("create course: %v", err)
	}
	if f.c2, err = e.courseSvc.Create(ctx, f.teacher, &model.CourseCreate{Name: "Security", Code: "SEC101"}); err != nil {
		t.Fatalf("create course: %v", err)
	}

	f.q1, err = e.questionSv.Create(ctx, f.teacher, &model.QuestionCreate{
		Title:         "Preferred protocol",
		AnswerType:    scoring.AnswerTypeMultipleChoice,
		AnswerOptions: map[string]any{"a": "TCP", "b": "Carrier pigeon"},
		ScoringRules:  map[string]any{"correct_option_key": "a"},
		DefaultFeedbacks: []scoring.FeedbackRule{
			{ScoreValue: 10, Comparison: scoring.Equal, Feedback: "good pick"},
		},
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	f.q2, err = e.questionSv.Create(ctx, f.teacher, &model.QuestionCreate{
		Title:         "Hours spent debugging DNS",
		AnswerType:    scoring.AnswerTypeRange,
		AnswerOptions: map[string]any{"min": 0.0, "max": 10.0, "step": 1.0},
		ScoringRules:  map[string]any{"target_value": 5.0, "score_at_target": 10.0, "score_per_deviation_unit": -2.0},
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	if f.q1c1, err = e.qcaSvc.Create(ctx, &model.QCACreate{QuestionID: f.q1.ID.Hex(), CourseID: f.c1.ID.Hex()}); err != nil {
		t.Fatalf("create qca: %v", err)
	}
	if f.q1c2, err = e.qcaSvc.Create(ctx, &model.QCACreate{QuestionID: f.q1.ID.Hex(), CourseID: f.c2.ID.Hex()}); err != nil {
		t.Fatalf("create qca: %v", err)
	}
	if f.q2c1, err = e.qcaSvc.Create(ctx, &model.QCACreate{
		QuestionID:      f.q2.ID.Hex(),
		CourseID:        f.c1.ID.Hex(),
		AssociationType: scoring.Negative,
	}); err != nil {
		t.Fatalf("create qca: %v", err)
	}

	f.survey, err = e.surveySvc.Create(ctx, f.teacher, &model.SurveyCreate{
		Title:     "Placement",
		CourseIDs: []string{f.c1.ID.Hex(), f.c2.ID.Hex()},
		CourseOutcomeThresholds: map[string][]scoring.OutcomeRule{
			f.c1.ID.Hex(): {
				{ScoreValue: 15, Comparison: scoring.GreaterThanOrEqual, Outcome: scoring.OutcomeEligibleERPL},
				{ScoreValue: 5, Comparison: scoring.GreaterThanOrEqual, Outcome: scoring.OutcomeRecommended},
			},
		},
	})
	if err != nil {
		t.Fatalf("create survey: %v", err)
	}
	if _, err := e.surveySvc.Publish(ctx, f.teacher, f.survey.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	return f
}

func (f *fixture) answers() *model.SaveAnswersRequest {
	return &model.SaveAnswersRequest{Answers: []model.AnswerInput{
		{QCAID: f.q1c1.ID.Hex(), QuestionID: f.q1.ID.Hex(), AnswerValue: "a"},
		{QCAID: f.q2c1.ID.Hex(), QuestionID: f.q2.ID.Hex(), AnswerValue: 7.0},
	}}
}

func TestStartReusesOpenAttempt(t *testing.T) {
	e := newTestEnv(t)
	f := seed(t, e)
	ctx := context.Background()

	first, err := e.attemptSvc.Start(ctx, f.student, f.survey.ID.Hex())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	second, err := e.attemptSvc.Start(ctx, f.student, f.survey.ID.Hex())
	if err != nil {
		t.Fatalf("Start again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("second Start opened %s, want open attempt %s", second.ID.Hex(), first.ID.Hex())
	}
}

func TestStartRequiresPublishedSurvey(t *testing.T) {
	e := newTestEnv(t)
	f := seed(t, e)
	ctx := context.Background()
	if _, err := e.surveySvc.Unpublish(ctx, f.teacher, f.survey.ID); err != nil {
		t.Fatalf("Unpublish: %v", err)
	}

	cases := map[string]string{
		"draft":   f.survey.ID.Hex(),
		"missing": primitive.NewObjectID().Hex(),
	}
	for name, id := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.attemptSvc.Start(ctx, f.student, id)
			if !errors.Is(err, ErrNotPublished) || !errors.Is(err, ErrNotFound) {
				t.Fatalf("err=%v, want not published", err)
			}
		})
	}

	if _, err := e.attemptSvc.Start(ctx, f.student, "nope"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("err=%v, want ErrInvalidID", err)
	}
}

func TestSaveAnswersFansOutToEveryQCA(t *testing.T) {
	e := newTestEnv(t)
	f := seed(t, e)
	ctx := context.Background()
	attempt, err := e.attemptSvc.Start(ctx, f.student, f.survey.ID.Hex())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	saved, err := e.attemptSvc.SaveAnswers(ctx, f.student, attempt.ID, f.answers())
	if err != nil {
		t.Fatalf("SaveAnswers: %v", err)
	}
	byQCA := map[primitive.ObjectID]any{}
	for _, a := range saved {
		byQCA[a.QCAID] = a.AnswerValue
	}
	want := map[primitive.ObjectID]any{f.q1c1.ID: "a", f.q1c2.ID: "a", f.q2c1.ID: 7.0}
	if !reflect.DeepEqual(byQCA, want) {
		t.Fatalf("saved=%v, want %v", byQCA, want)
	}

	// saving again replaces instead of appending
	req := &model.SaveAnswersRequest{Answers: []model.AnswerInput{
		{QCAID: f.q1c2.ID.Hex(), QuestionID: f.q1.ID.Hex(), AnswerValue: "b"},
	}}
	if saved, err = e.attemptSvc.SaveAnswers(ctx, f.student, attempt.ID, req); err != nil {
		t.Fatalf("SaveAnswers: %v", err)
	}
	if len(saved) != 3 {
		t.Fatalf("len(saved)=%d, want 3", len(saved))
	}
	for _, a := range saved {
		if a.QuestionID == f.q1.ID && a.AnswerValue != "b" {
			t.Fatalf("qca %s kept %v, want b", a.QCAID.Hex(), a.AnswerValue)
		}
	}
}

func TestSaveAnswersRejectsBadInput(t *testing.T) {
	e := newTestEnv(t)
	f := seed(t, e)
	ctx := context.Background()
	attempt, err := e.attemptSvc.Start(ctx, f.student, f.survey.ID.Hex())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	cases := []struct {
		name string
		in   model.AnswerInput
	}{
		{"unknown option", model.AnswerInput{QCAID: f.q1c1.ID.Hex(), QuestionID: f.q1.ID.Hex(), AnswerValue: "z"}},
		{"wrong shape", model.AnswerInput{QCAID: f.q1c1.ID.Hex(), QuestionID: f.q1.ID.Hex(), AnswerValue: 3.0}},
		{"question mismatch", model.AnswerInput{QCAID: f.q1c1.ID.Hex(), QuestionID: f.q2.ID.Hex(), AnswerValue: 3.0}},
		{"foreign qca", model.AnswerInput{QCAID: primitive.NewObjectID().Hex(), QuestionID: f.q1.ID.Hex(), AnswerValue: "a"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := &model.SaveAnswersRequest{Answers: []model.AnswerInput{c.in}}
			_, err := e.attemptSvc.SaveAnswers(ctx, f.student, attempt.ID, req)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err=%v, want ValidationError", err)
			}
		})
	}

	other := addUser(t, e, "other", model.RoleStudent)
	if _, err := e.attemptSvc.SaveAnswers(ctx, other, attempt.ID, f.answers()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other student err=%v, want ErrNotFound", err)
	}
	if len(e.answers.items) != 0 {
		t.Fatalf("rejected batches stored %d answers", len(e.answers.items))
	}
}

func TestSubmitScoresAttempt(t *testing.T) {
	e := newTestEnv(t)
	f := seed(t, e)
	ctx := context.Background()
	attempt, err := e.attemptSvc.Start(ctx, f.student, f.survey.ID.Hex())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.attemptSvc.SaveAnswers(ctx, f.student, attempt.ID, f.answers()); err != nil {
		t.Fatalf("SaveAnswers: %v", err)
	}

	got, err := e.attemptSvc.Submit(ctx, f.student, attempt.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !got.IsSubmitted || got.SubmittedAt == nil {
		t.Fatalf("attempt not marked submitted: %+v", got)
	}

	c1, c2 := f.c1.ID.Hex(), f.c2.ID.Hex()
	// q1 scores 10 on both courses; q2 scores 6 and links c1 negatively
	wantScores := map[string]float64{c1: 14, c2: 10}
	if !reflect.DeepEqual(got.CourseScores, wantScores) {
		t.Fatalf("CourseScores=%v, want %v", got.CourseScores, wantScores)
	}
	if got.ActualOverallSurveyScore == nil || *got.ActualOverallSurveyScore != 16 {
		t.Fatalf("overall=%v, want 16", got.ActualOverallSurveyScore)
	}
	wantOutcomes := map[string]scoring.OutcomeCategory{c1: scoring.OutcomeRecommended, c2: scoring.OutcomeUndefined}
	if !reflect.DeepEqual(got.CourseOutcomeCategorization, wantOutcomes) {
		t.Fatalf("outcomes=%v, want %v", got.CourseOutcomeCategorization, wantOutcomes)
	}
	if got.OverallSurveyFeedback != "thanks" {
		t.Fatalf("overall feedback=%q, want completion message", got.OverallSurveyFeedback)
	}
	if len(got.DetailedFeedback[c2]) != 1 || got.DetailedFeedback[c2][0] != "Q: Preferred protocol: good pick" {
		t.Fatalf("detailed feedback=%v", got.DetailedFeedback)
	}

	for _, a := range e.answers.items {
		if a.ScoreAchieved == nil {
			t.Fatalf("answer %s has no score", a.QCAID.Hex())
		}
		if a.QuestionID == f.q2.ID && *a.ScoreAchieved != 6 {
			t.Fatalf("q2 score=%v, want 6", *a.ScoreAchieved)
		}
	}
	if _, ok := e.results.items[attempt.ID.Hex()]; !ok {
		t.Fatal("submitted result was not cached")
	}
	if len(e.lock.held) != 0 {
		t.Fatalf("submit lock still held: %v", e.lock.held)
	}

	if len(e.broadcaster.sent) != 1 {
		t.Fatalf("broadcasts=%d, want 1", len(e.broadcaster.sent))
	}
	sent := e.broadcaster.sent[0]
	if sent.ownerID != f.teacher.Hex() || sent.surveyID != f.survey.ID.Hex() {
		t.Fatalf("broadcast routed to %s/%s", sent.ownerID, sent.surveyID)
	}
	if sent.event.Type != model.EventAttemptSubmitted || sent.event.StudentDisplayName != "student display" || sent.event.OverallScore != 16 {
		t.Fatalf("event=%+v", sent.event)
	}
	if e.recorder.count != 1 || len(e.recorder.outcomes) != 2 {
		t.Fatalf("recorder=%+v", e.recorder)
	}
}

func TestSubmitUnansweredStoresZeroScores(t *testing.T) {
	e := newTestEnv(t)
	f := seed(t, e)
	ctx := context.Background()
	attempt, err := e.attemptSvc.Start(ctx, f.student, f.survey.ID.Hex())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	got, err := e.attemptSvc.Submit(ctx, f.student, attempt.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// the negative link still contributes 10 - 0
	if got.CourseScores[f.c1.ID.Hex()] != 10 || got.CourseScores[f.c2.ID.Hex()] != 0 {
		t.Fatalf("CourseScores=%v", got.CourseScores)
	}
	if len(e.answers.items) != 3 {
		t.Fatalf("stored %d answers, want one per qca", len(e.answers.items))
	}
	for _, a := range e.answers.items {
		if !a.IsUnanswered || a.ScoreAchieved == nil || *a.ScoreAchieved != 0 {
			t.Fatalf("answer=%+v, want unanswered 0", a)
		}
	}
}

func TestSubmitScoresLateLinkedQuestion(t *testing.T) {
	e := newTestEnv(t)
	f := seed(t, e)
	ctx := context.Background()
	attempt, err := e.attemptSvc.Start(ctx, f.student, f.survey.ID.Hex())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.attemptSvc.SaveAnswers(ctx, f.student, attempt.ID, f.answers()); err != nil {
		t.Fatalf("SaveAnswers: %v", err)
	}
	late, err := e.qcaSvc.Create(ctx, &model.QCACreate{QuestionID: f.q2.ID.Hex(), CourseID: f.c2.ID.Hex()})
	if err != nil {
		t.Fatalf("create qca: %v", err)
	}

	got, err := e.attemptSvc.Submit(ctx, f.student, attempt.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// q2 keeps its saved answer of 7 on the new link
	if got.CourseScores[f.c1.ID.Hex()] != 14 || got.CourseScores[f.c2.ID.Hex()] != 16 {
		t.Fatalf("CourseScores=%v", got.CourseScores)
	}
	var found bool
	for _, a := range e.answers.items {
		if a.QCAID != late.ID {
			continue
		}
		found = true
		if a.IsUnanswered || a.ScoreAchieved == nil || *a.ScoreAchieved != 6 {
			t.Fatalf("late answer=%+v, want scored 6", a)
		}
		if v, ok := a.AnswerValue.(float64); !ok || v != 7 {
			t.Fatalf("late answer value=%v, want 7", a.AnswerValue)
		}
	}
	if !found {
		t.Fatal("no answer stored for the late qca")
	}
}

func TestSubmitLosingRaceLeavesAnswersUnscored(t *testing.T) {
	e := newTestEnv(t)
	f := seed(t, e)
	ctx := context.Background()
	attempt, err := e.attemptSvc.Start(ctx, f.student, f.survey.ID.Hex())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.attemptSvc.SaveAnswers(ctx, f.student, attempt.ID, f.answers()); err != nil {
		t.Fatalf("SaveAnswers: %v", err)
	}
	e.attempts.markErr = repository.ErrStateChanged

	if _, err := e.attemptSvc.Submit(ctx, f.student, attempt.ID); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("err=%v, want ErrAlreadySubmitted", err)
	}
	for _, a := range e.answers.items {
		if a.ScoreAchieved != nil {
			t.Fatalf("answer %s scored %v by the losing submit", a.QCAID.Hex(), *a.ScoreAchieved)
		}
	}
	if len(e.broadcaster.sent) != 0 {
		t.Fatalf("broadcasts=%d, want 0", len(e.broadcaster.sent))
	}
}

func TestSubmitTwice(t *testing.T) {
	e := newTestEnv(t)
	f := seed(t, e)
	ctx := context.Background()
	attempt, err := e.attemptSvc.Start(ctx, f.student, f.survey.ID.Hex())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.attemptSvc.Submit(ctx, f.student, attempt.ID); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err = e.attemptSvc.Submit(ctx, f.student, attempt.ID)
	if !errors.Is(err, ErrAlreadySubmitted) || !errors.Is(err, ErrConflict) {
		t.Fatalf("err=%v, want ErrAlreadySubmitted", err)
	}
	if _, err := e.attemptSvc.SaveAnswers(ctx, f.student, attempt.ID, f.answers()); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("save after submit err=%v, want ErrAlreadySubmitted", err)
	}
	if len(e.broadcaster.sent) != 1 {
		t.Fatalf("broadcasts=%d, want 1", len(e.broadcaster.sent))
	}
}

func TestSubmitWhileLocked(t *testing.T) {
	e := newTestEnv(t)
	f := seed(t, e)
	ctx := context.Background()
	attempt, err := e.attemptSvc.Start(ctx, f.student, f.survey.ID.Hex())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.lock.Acquire(ctx, attempt.ID.Hex()); err != nil {
		t.Fatal(err)
	}

	if _, err := e.attemptSvc.Submit(ctx, f.student, attempt.ID); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("err=%v, want ErrSubmitInProgress", err)
	}
	stored, _ := e.attempts.GetByID(ctx, attempt.ID)
	if stored.IsSubmitted {
		t.Fatal("attempt submitted while another submit held the lock")
	}
}

func TestResultsAccess(t *testing.T) {
	e := newTestEnv(t)
	f := seed(t, e)
	ctx := context.Background()
	attempt, err := e.attemptSvc.Start(ctx, f.student, f.survey.ID.Hex())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	student := Viewer{ID: f.student, Role: model.RoleStudent}
	if _, err := e.attemptSvc.Results(ctx, student, attempt.ID); !errors.Is(err, ErrNotSubmitted) {
		t.Fatalf("open attempt err=%v, want ErrNotSubmitted", err)
	}
	if _, err := e.attemptSvc.Submit(ctx, f.student, attempt.ID); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	otherTeacher := addUser(t, e, "other-teacher", model.RoleTeacher)
	otherStudent := addUser(t, e, "other-student", model.RoleStudent)
	cases := []struct {
		name    string
		viewer  Viewer
		wantErr error
	}{
		{"owner", student, nil},
		{"survey teacher", Viewer{ID: f.teacher, Role: model.RoleTeacher}, nil},
		{"other teacher", Viewer{ID: otherTeacher, Role: model.RoleTeacher}, ErrForbidden},
		{"other student", Viewer{ID: otherStudent, Role: model.RoleStudent}, ErrForbidden},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, err := e.attemptSvc.Results(ctx, c.viewer, attempt.ID)
			if c.wantErr != nil {
				if !errors.Is(err, c.wantErr) {
					t.Fatalf("err=%v, want %v", err, c.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Results: %v", err)
			}
			if res.SurveyTitle != "Placement" || res.CourseNames[f.c1.ID.Hex()] != "Networking" {
				t.Fatalf("result=%+v", res)
			}
			if res.MaxScoresPerCourse[f.c1.ID.Hex()] != 20 || res.MaxOverallSurveyScore != 20 {
				t.Fatalf("max scores=%v %v", res.MaxScoresPerCourse, res.MaxOverallSurveyScore)
			}
		})
	}
}

func TestListBySurveyOwnerOnly(t *testing.T) {
	e := newTestEnv(t)
	f := seed(t, e)
	ctx := context.Background()
	attempt, err := e.attemptSvc.Start(ctx, f.student, f.survey.ID.Hex())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.attemptSvc.SaveAnswers(ctx, f.student, attempt.ID, f.answers()); err != nil {
		t.Fatalf("SaveAnswers: %v", err)
	}
	if _, err := e.attemptSvc.Submit(ctx, f.student, attempt.ID); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	list, err := e.attemptSvc.ListBySurvey(ctx, f.teacher, f.survey.ID, model.Page{}, true)
	if err != nil {
		t.Fatalf("ListBySurvey: %v", err)
	}
	if len(list) != 1 || len(list[0].Answers) != 3 {
		t.Fatalf("list=%+v", list)
	}

	other := addUser(t, e, "other-teacher", model.RoleTeacher)
	if _, err := e.attemptSvc.ListBySurvey(ctx, other, f.survey.ID, model.Page{}, false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err=%v, want ErrForbidden", err)
	}

	mine, err := e.attemptSvc.ListMine(ctx, f.student, model.Page{}, false)
	if err != nil || len(mine) != 1 {
		t.Fatalf("ListMine=%v, %v", mine, err)
	}
}

func TestClampPage(t *testing.T) {
	cases := []struct{ in, want model.Page }{
		{model.Page{}, model.Page{Limit: defaultPageLimit}},
		{model.Page{Skip: -3, Limit: 5}, model.Page{Limit: 5}},
		{model.Page{Skip: 10, Limit: 1000}, model.Page{Skip: 10, Limit: maxPageLimit}},
	}
	for _, c := range cases {
		if got := clampPage(c.in); got != c.want {
			t.Fatalf("clampPage(%+v)=%+v, want %+v", c.in, got, c.want)
		}
	}
}
