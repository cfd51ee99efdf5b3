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

// AnswerRepo handles MongoDB operations for student answers. There is at
// most one answer per (attempt, qca) pair.
type AnswerRepo interface {
	Upsert(ctx context.Context, answer *model.StudentAnswer) error
	ListByAttempt(ctx context.Context, attemptID primitive.ObjectID) ([]*model.StudentAnswer, error)
	ListByAttempts(ctx context.Context, attemptIDs []primitive.ObjectID) ([]*model.StudentAnswer, error)
	SetScores(ctx context.Context, attemptID primitive.ObjectID, scores []model.AnswerScore) error
	DeleteByAttempts(ctx context.Context, attemptIDs []primitive.ObjectID) error
}

type answerRepo struct {
	collection *mongo.Collection
}

// NewAnswerRepo creates a new student answer repository
func NewAnswerRepo(db *mongo.Database) AnswerRepo {
	return &answerRepo{
		collection: db.Collection(AnswersCollection),
	}
}

func (r *answerRepo) Upsert(ctx context.Context, answer *model.StudentAnswer) error {
	answer.UpdatedAt = time.Now().UTC()
	filter := bson.M{"survey_attempt_id": answer.SurveyAttemptID, "qca_id": answer.QCAID}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored model.StudentAnswer
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{
		"$set": bson.M{
			"question_id":  answer.QuestionID,
			"answer_value": answer.AnswerValue,
			"updated_at":   answer.UpdatedAt,
		},
		"$unset": bson.M{"score_achieved": ""},
	}, opts).Decode(&stored)
	if err != nil {
		return wrapWriteErr(err)
	}
	answer.ID = stored.ID
	answer.ScoreAchieved = nil
	return nil
}

func (r *answerRepo) ListByAttempt(ctx context.Context, attemptID primitive.ObjectID) ([]*model.StudentAnswer, error) {
	return r.find(ctx, bson.M{"survey_attempt_id": attemptID})
}

func (r *answerRepo) ListByAttempts(ctx context.Context, attemptIDs []primitive.ObjectID) ([]*model.StudentAnswer, error) {
	if len(attemptIDs) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"survey_attempt_id": bson.M{"$in": attemptIDs}})
}

func (r *answerRepo) find(ctx context.Context, filter bson.M) ([]*model.StudentAnswer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var answers []*model.StudentAnswer
	if err := cursor.All(ctx, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// SetScores writes every score in one bulk request. Answers missing for a QCA
// are inserted with the value the question was scored from, null when the
// question was not answered.
func (r *answerRepo) SetScores(ctx context.Context, attemptID primitive.ObjectID, scores []model.AnswerScore) error {
	if len(scores) == 0 {
		return nil
	}
	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(scores))
	for _, s := range scores {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"survey_attempt_id": attemptID, "qca_id": s.QCAID}).
			SetUpdate(bson.M{
				"$set": bson.M{
					"score_achieved": s.Score,
					"is_unanswered":  s.Unanswered,
					"updated_at":     now,
				},
				"$setOnInsert": bson.M{
					"question_id":  s.QuestionID,
					"answer_value": s.AnswerValue,
				},
			}).
			SetUpsert(true))
	}
	_, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}

func (r *answerRepo) DeleteByAttempts(ctx context.Context, attemptIDs []primitive.ObjectID) error {
	if len(attemptIDs) == 0 {
		return nil
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"survey_attempt_id": bson.M{"$in": attemptIDs}})
	return err
}
