package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"narsus/internal/app"
	"narsus/internal/config"
	"narsus/internal/logger"
	"narsus/internal/model"
	"narsus/internal/scoring"
	"narsus/internal/service"
)

const (
	seedTeacher  = "demo.teacher"
	seedPassword = "demo-password"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zlog, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close(context.Background())

	survey, err := seed(ctx, a)
	if err != nil {
		zlog.Fatal("seed failed", zap.Error(err))
	}
	zlog.Info("seeded demo survey",
		zap.String("survey_id", survey.ID.Hex()),
		zap.String("teacher", seedTeacher),
		zap.Float64("max_overall_score", survey.MaxOverallSurveyScore),
	)
}

func seed(ctx context.Context, a *app.App) (*model.Survey, error) {
	teacher, err := a.AuthService.Register(ctx, &model.RegisterRequest{
		Username:    seedTeacher,
		Password:    seedPassword,
		DisplayName: "Demo Teacher",
		Role:        model.RoleTeacher,
	})
	if errors.Is(err, service.ErrConflict) {
		teacher, err = a.UserRepo.GetByUsername(ctx, seedTeacher)
	}
	if err != nil {
		return nil, err
	}

	networking, err := a.CourseService.Create(ctx, teacher.ID, &model.CourseCreate{
		Name:        "Networking Fundamentals",
		Code:        "NET101",
		Description: "Addressing, routing and transport protocols",
	})
	if err != nil {
		return nil, err
	}
	security, err := a.CourseService.Create(ctx, teacher.ID, &model.CourseCreate{
		Name:        "Security Basics",
		Code:        "SEC101",
		Description: "Threat models, authentication and hardening",
	})
	if err != nil {
		return nil, err
	}

	transport, err := a.QuestionService.Create(ctx, teacher.ID, &model.QuestionCreate{
		Title:         "Which protocol guarantees ordered delivery?",
		AnswerType:    scoring.AnswerTypeMultipleChoice,
		AnswerOptions: map[string]any{"a": "TCP", "b": "UDP", "c": "ICMP"},
		ScoringRules:  map[string]any{"correct_option_key": "a"},
		DefaultFeedbacks: []scoring.FeedbackRule{
			{ScoreValue: 10, Comparison: scoring.Equal, Feedback: "Correct, TCP orders segments."},
			{ScoreValue: 10, Comparison: scoring.LessThan, Feedback: "Review how TCP sequences segments."},
		},
	})
	if err != nil {
		return nil, err
	}
	practices, err := a.QuestionService.Create(ctx, teacher.ID, &model.QuestionCreate{
		Title:         "Which practices do you apply to your accounts?",
		AnswerType:    scoring.AnswerTypeMultipleSelect,
		AnswerOptions: map[string]any{"mfa": "Multi-factor login", "reuse": "Reused passwords", "manager": "Password manager"},
		ScoringRules: map[string]any{
			"correct_option_keys":   []any{"mfa", "manager"},
			"score_per_correct":     5,
			"penalty_per_incorrect": 5,
		},
	})
	if err != nil {
		return nil, err
	}
	experience, err := a.QuestionService.Create(ctx, teacher.ID, &model.QuestionCreate{
		Title:         "How many years have you administered networks?",
		AnswerType:    scoring.AnswerTypeRange,
		AnswerOptions: map[string]any{"min": 0, "max": 10, "step": 1},
		ScoringRules: map[string]any{
			"target_value":             10,
			"score_at_target":          10,
			"score_per_deviation_unit": 1,
		},
	})
	if err != nil {
		return nil, err
	}

	links := []model.QCACreate{
		{QuestionID: transport.ID.Hex(), CourseID: networking.ID.Hex(), AssociationType: scoring.Positive},
		{QuestionID: experience.ID.Hex(), CourseID: networking.ID.Hex(), AssociationType: scoring.Positive},
		{QuestionID: practices.ID.Hex(), CourseID: security.ID.Hex(), AssociationType: scoring.Positive,
			Feedbacks: []scoring.FeedbackRule{
				{ScoreValue: 5, Comparison: scoring.LessThan, Feedback: "Start with a password manager and MFA."},
			}},
		{QuestionID: experience.ID.Hex(), CourseID: security.ID.Hex(), AssociationType: scoring.Negative},
	}
	for i := range links {
		if _, err := a.QCAService.Create(ctx, &links[i]); err != nil {
			return nil, err
		}
	}

	net, sec := networking.ID.Hex(), security.ID.Hex()
	survey, err := a.SurveyService.Create(ctx, teacher.ID, &model.SurveyCreate{
		Title:       "IT Placement",
		Description: "Find the right starting course",
		CourseIDs:   []string{net, sec},
		CourseSkillTotalScoreThresholds: map[string][]scoring.FeedbackRule{
			net: {{ScoreValue: 15, Comparison: scoring.GreaterThanOrEqual, Feedback: "Strong networking background."}},
			sec: {{ScoreValue: 10, Comparison: scoring.LessThan, Feedback: "Security is a good next step."}},
		},
		CourseOutcomeThresholds: map[string][]scoring.OutcomeRule{
			net: {
				{ScoreValue: 18, Comparison: scoring.GreaterThanOrEqual, Outcome: scoring.OutcomeEligibleERPL},
				{ScoreValue: 8, Comparison: scoring.GreaterThanOrEqual, Outcome: scoring.OutcomeRecommended},
				{ScoreValue: 8, Comparison: scoring.LessThan, Outcome: scoring.OutcomeNotSuitable},
			},
			sec: {
				{ScoreValue: 10, Comparison: scoring.GreaterThanOrEqual, Outcome: scoring.OutcomeRecommended},
			},
		},
		OverallScoreFeedbacks: []scoring.FeedbackRule{
			{ScoreValue: 30, Comparison: scoring.GreaterThanOrEqual, Feedback: "Excellent overall result."},
		},
	})
	if err != nil {
		return nil, err
	}
	return a.SurveyService.Publish(ctx, teacher.ID, survey.ID)
}
