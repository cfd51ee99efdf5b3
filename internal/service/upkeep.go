package service

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"narsus/internal/cache"
	"narsus/internal/model"
	"narsus/internal/repository"
	"narsus/internal/scoring"
)

// SurveyUpkeep keeps derived survey state in line with course and QCA changes:
// the stored max scores and the cached survey-for-taking payloads
type SurveyUpkeep struct {
	surveys repository.SurveyRepo
	qcas    repository.QCARepo
	cache   cache.SurveyCache
	log     *zap.Logger
}

// NewSurveyUpkeep creates the survey upkeep shared by the authoring services
func NewSurveyUpkeep(surveys repository.SurveyRepo, qcas repository.QCARepo, surveyCache cache.SurveyCache, log *zap.Logger) *SurveyUpkeep {
	return &SurveyUpkeep{
		surveys: surveys,
		qcas:    qcas,
		cache:   surveyCache,
		log:     log,
	}
}

func qcaLinks(qcas []*model.QCA) []scoring.Link {
	links := make([]scoring.Link, len(qcas))
	for i, q := range qcas {
		links[i] = scoring.Link{QuestionID: q.QuestionID.Hex(), CourseID: q.CourseID.Hex()}
	}
	return links
}

// maxScores derives the survey's achievable maxima from the current QCAs
func (u *SurveyUpkeep) maxScores(ctx context.Context, courseIDs []primitive.ObjectID) (map[string]float64, float64, error) {
	qcas, err := u.qcas.ListByCourses(ctx, courseIDs)
	if err != nil {
		return nil, 0, fmt.Errorf("list qcas: %w", err)
	}
	keys := make([]string, len(courseIDs))
	for i, id := range courseIDs {
		keys[i] = id.Hex()
	}
	perCourse, overall := scoring.MaxScores(keys, qcaLinks(qcas))
	return perCourse, overall, nil
}

// refreshCourses recomputes max scores and drops cached payloads of every
// survey that includes one of courseIDs
func (u *SurveyUpkeep) refreshCourses(ctx context.Context, courseIDs ...primitive.ObjectID) error {
	seen := make(map[primitive.ObjectID]struct{})
	for _, courseID := range courseIDs {
		surveys, err := u.surveys.ListByCourse(ctx, courseID)
		if err != nil {
			return fmt.Errorf("list surveys for course: %w", err)
		}
		for _, survey := range surveys {
			if _, done := seen[survey.ID]; done {
				continue
			}
			seen[survey.ID] = struct{}{}

			perCourse, overall, err := u.maxScores(ctx, survey.CourseIDs)
			if err != nil {
				return err
			}
			if err := u.surveys.SetMaxScores(ctx, survey.ID, perCourse, overall); err != nil {
				return fmt.Errorf("set max scores: %w", err)
			}
			u.invalidate(ctx, survey.ID.Hex())
		}
	}
	return nil
}

// invalidate drops cached payloads. A cache failure is logged, not returned.
func (u *SurveyUpkeep) invalidate(ctx context.Context, surveyIDs ...string) {
	if err := u.cache.Invalidate(ctx, surveyIDs...); err != nil {
		u.log.Warn("survey cache invalidation failed", zap.Strings("survey_ids", surveyIDs), zap.Error(err))
	}
}
