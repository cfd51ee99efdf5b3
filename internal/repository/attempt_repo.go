package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"narsus/internal/model"
)

// AttemptRepo handles MongoDB operations for survey attempts
type AttemptRepo interface {
	Create(ctx context.Context, attempt *model.SurveyAttempt) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.SurveyAttempt, error)
	FindOpen(ctx context.Context, studentID, surveyID primitive.ObjectID) (*model.SurveyAttempt, error)
	ListByStudent(ctx context.Context, studentID primitive.ObjectID, page model.Page) ([]*model.SurveyAttempt, error)
	ListSubmittedBySurvey(ctx context.Context, surveyID primitive.ObjectID, page model.Page) ([]*model.SurveyAttempt, error)
	CountSubmittedBySurvey(ctx context.Context, surveyID primitive.ObjectID) (int64, error)
	// MarkSubmitted writes the scoring result if and only if the attempt is
	// still unsubmitted. It returns ErrStateChanged otherwise.
	MarkSubmitted(ctx context.Context, id primitive.ObjectID, sub *model.Submission) error
	DeleteUnsubmittedBySurvey(ctx context.Context, surveyID primitive.ObjectID) ([]primitive.ObjectID, error)
}

type attemptRepo struct {
	collection *mongo.Collection
}

// NewAttemptRepo creates a new survey attempt repository
func NewAttemptRepo(db *mongo.Database) AttemptRepo {
	return &attemptRepo{
		collection: db.Collection(AttemptsCollection),
	}
}

func (r *attemptRepo) Create(ctx context.Context, attempt *model.SurveyAttempt) error {
	if attempt.StartedAt.IsZero() {
		attempt.StartedAt = time.Now().UTC()
	}
	result, err := r.collection.InsertOne(ctx, attempt)
	if err != nil {
		return wrapWriteErr(err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		attempt.ID = oid
	}
	return nil
}

func (r *attemptRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.SurveyAttempt, error) {
	var attempt model.SurveyAttempt
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&attempt); err != nil {
		return nil, wrapFindErr(err)
	}
	return &attempt, nil
}

func (r *attemptRepo) FindOpen(ctx context.Context, studentID, surveyID primitive.ObjectID) (*model.SurveyAttempt, error) {
	var attempt model.SurveyAttempt
	opts := options.FindOne().SetSort(bson.D{{Key: "started_at", Value: -1}})
	err := r.collection.FindOne(ctx, bson.M{
		"student_id":   studentID,
		"survey_id":    surveyID,
		"is_submitted": false,
	}, opts).Decode(&attempt)
	if err != nil {
		return nil, wrapFindErr(err)
	}
	return &attempt, nil
}

func (r *attemptRepo) ListByStudent(ctx context.Context, studentID primitive.ObjectID, page model.Page) ([]*model.SurveyAttempt, error) {
	return r.find(ctx, bson.M{"student_id": studentID}, "started_at", page)
}

func (r *attemptRepo) ListSubmittedBySurvey(ctx context.Context, surveyID primitive.ObjectID, page model.Page) ([]*model.SurveyAttempt, error) {
	return r.find(ctx, bson.M{"survey_id": surveyID, "is_submitted": true}, "submitted_at", page)
}

func (r *attemptRepo) find(ctx context.Context, filter bson.M, newestBy string, page model.Page) ([]*model.SurveyAttempt, error) {
	opts := options.Find().SetSort(bson.D{{Key: newestBy, Value: -1}})
	if page.Skip > 0 {
		opts.SetSkip(page.Skip)
	}
	if page.Limit > 0 {
		opts.SetLimit(page.Limit)
	}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var attempts []*model.SurveyAttempt
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *attemptRepo) CountSubmittedBySurvey(ctx context.Context, surveyID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"survey_id": surveyID, "is_submitted": true})
}

func (r *attemptRepo) MarkSubmitted(ctx context.Context, id primitive.ObjectID, sub *model.Submission) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "is_submitted": false},
		bson.M{"$set": bson.M{
			"is_submitted":                  true,
			"submitted_at":                  sub.SubmittedAt,
			"course_scores":                 sub.CourseScores,
			"course_feedback":               sub.CourseFeedback,
			"detailed_feedback":             sub.DetailedFeedback,
			"course_outcome_categorization": sub.CourseOutcomes,
			"overall_survey_feedback":       sub.OverallFeedback,
			"actual_overall_survey_score":   sub.OverallScore,
		}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrStateChanged
	}
	return nil
}

func (r *attemptRepo) DeleteUnsubmittedBySurvey(ctx context.Context, surveyID primitive.ObjectID) ([]primitive.ObjectID, error) {
	filter := bson.M{"survey_id": surveyID, "is_submitted": false}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	if _, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}, "is_submitted": false}); err != nil {
		return nil, err
	}
	return ids, nil
}
