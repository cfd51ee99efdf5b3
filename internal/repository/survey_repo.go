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

// SurveyFilter narrows a survey listing
type SurveyFilter struct {
	PublishedOnly bool
	CreatedBy     primitive.ObjectID
}

// SurveyRepo handles MongoDB operations for surveys
type SurveyRepo interface {
	Create(ctx context.Context, survey *model.Survey) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Survey, error)
	List(ctx context.Context, filter SurveyFilter) ([]*model.Survey, error)
	ListByCourse(ctx context.Context, courseID primitive.ObjectID) ([]*model.Survey, error)
	Update(ctx context.Context, survey *model.Survey) error
	SetMaxScores(ctx context.Context, id primitive.ObjectID, perCourse map[string]float64, overall float64) error
	RemoveCourseFromDrafts(ctx context.Context, courseID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type surveyRepo struct {
	collection *mongo.Collection
}

// NewSurveyRepo creates a new survey repository
func NewSurveyRepo(db *mongo.Database) SurveyRepo {
	return &surveyRepo{
		collection: db.Collection(SurveysCollection),
	}
}

func (r *surveyRepo) Create(ctx context.Context, survey *model.Survey) error {
	now := time.Now().UTC()
	survey.CreatedAt = now
	survey.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, survey)
	if err != nil {
		return wrapWriteErr(err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		survey.ID = oid
	}
	return nil
}

func (r *surveyRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Survey, error) {
	var survey model.Survey
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&survey); err != nil {
		return nil, wrapFindErr(err)
	}
	return &survey, nil
}

func (r *surveyRepo) List(ctx context.Context, filter SurveyFilter) ([]*model.Survey, error) {
	f := bson.M{}
	if filter.PublishedOnly {
		f["is_published"] = true
	}
	if !filter.CreatedBy.IsZero() {
		f["created_by"] = filter.CreatedBy
	}
	return r.find(ctx, f)
}

func (r *surveyRepo) ListByCourse(ctx context.Context, courseID primitive.ObjectID) ([]*model.Survey, error) {
	return r.find(ctx, bson.M{"course_ids": courseID})
}

func (r *surveyRepo) find(ctx context.Context, filter bson.M) ([]*model.Survey, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var surveys []*model.Survey
	if err := cursor.All(ctx, &surveys); err != nil {
		return nil, err
	}
	return surveys, nil
}

func (r *surveyRepo) Update(ctx context.Context, survey *model.Survey) error {
	survey.UpdatedAt = time.Now().UTC()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": survey.ID}, survey)
	if err != nil {
		return wrapWriteErr(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *surveyRepo) SetMaxScores(ctx context.Context, id primitive.ObjectID, perCourse map[string]float64, overall float64) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"max_scores_per_course":    perCourse,
			"max_overall_survey_score": overall,
			"updated_at":               time.Now().UTC(),
		},
	})
	return err
}

// RemoveCourseFromDrafts strips a deleted course from every unpublished
// survey's course list and rule maps. Published surveys keep the reference.
func (r *surveyRepo) RemoveCourseFromDrafts(ctx context.Context, courseID primitive.ObjectID) error {
	key := courseID.Hex()
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"course_ids": courseID, "is_published": false},
		bson.M{
			"$pull": bson.M{"course_ids": courseID},
			"$unset": bson.M{
				"course_skill_total_score_thresholds." + key: "",
				"course_outcome_thresholds." + key:           "",
				"max_scores_per_course." + key:               "",
			},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return err
}

func (r *surveyRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
