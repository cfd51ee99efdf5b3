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

// QuestionRepo handles MongoDB operations for questions
type QuestionRepo interface {
	Create(ctx context.Context, q *model.Question) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Question, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Question, error)
	List(ctx context.Context) ([]*model.Question, error)
	Update(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type questionRepo struct {
	collection *mongo.Collection
}

// NewQuestionRepo creates a new question repository
func NewQuestionRepo(db *mongo.Database) QuestionRepo {
	return &questionRepo{
		collection: db.Collection(QuestionsCollection),
	}
}

func (r *questionRepo) Create(ctx context.Context, q *model.Question) error {
	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, q)
	if err != nil {
		return wrapWriteErr(err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		q.ID = oid
	}
	return nil
}

func (r *questionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Question, error) {
	var q model.Question
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&q); err != nil {
		return nil, wrapFindErr(err)
	}
	return &q, nil
}

func (r *questionRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *questionRepo) List(ctx context.Context) ([]*model.Question, error) {
	return r.find(ctx, bson.M{})
}

func (r *questionRepo) find(ctx context.Context, filter bson.M) ([]*model.Question, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var questions []*model.Question
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepo) Update(ctx context.Context, q *model.Question) error {
	q.UpdatedAt = time.Now().UTC()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": q.ID}, q)
	if err != nil {
		return wrapWriteErr(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *questionRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
