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

// QCARepo handles MongoDB operations for question-course associations.
// Listings return documents in insertion order.
type QCARepo interface {
	Create(ctx context.Context, qca *model.QCA) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.QCA, error)
	List(ctx context.Context, filter model.QCAFilter) ([]*model.QCA, error)
	ListByCourses(ctx context.Context, courseIDs []primitive.ObjectID) ([]*model.QCA, error)
	Update(ctx context.Context, qca *model.QCA) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByQuestion(ctx context.Context, questionID primitive.ObjectID) ([]*model.QCA, error)
	DeleteByCourse(ctx context.Context, courseID primitive.ObjectID) ([]*model.QCA, error)
}

type qcaRepo struct {
	collection *mongo.Collection
}

// NewQCARepo creates a new question-course association repository
func NewQCARepo(db *mongo.Database) QCARepo {
	return &qcaRepo{
		collection: db.Collection(QCAsCollection),
	}
}

func (r *qcaRepo) Create(ctx context.Context, qca *model.QCA) error {
	now := time.Now().UTC()
	qca.CreatedAt = now
	qca.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, qca)
	if err != nil {
		return wrapWriteErr(err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		qca.ID = oid
	}
	return nil
}

func (r *qcaRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.QCA, error) {
	var qca model.QCA
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&qca); err != nil {
		return nil, wrapFindErr(err)
	}
	return &qca, nil
}

func (r *qcaRepo) List(ctx context.Context, filter model.QCAFilter) ([]*model.QCA, error) {
	f := bson.M{}
	if !filter.QuestionID.IsZero() {
		f["question_id"] = filter.QuestionID
	}
	if !filter.CourseID.IsZero() {
		f["course_id"] = filter.CourseID
	}
	return r.find(ctx, f)
}

func (r *qcaRepo) ListByCourses(ctx context.Context, courseIDs []primitive.ObjectID) ([]*model.QCA, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"course_id": bson.M{"$in": courseIDs}})
}

func (r *qcaRepo) find(ctx context.Context, filter bson.M) ([]*model.QCA, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var qcas []*model.QCA
	if err := cursor.All(ctx, &qcas); err != nil {
		return nil, err
	}
	return qcas, nil
}

func (r *qcaRepo) Update(ctx context.Context, qca *model.QCA) error {
	qca.UpdatedAt = time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": qca.ID}, bson.M{
		"$set": bson.M{
			"answer_association_type":  qca.AssociationType,
			"feedbacks_based_on_score": qca.Feedbacks,
			"updated_at":               qca.UpdatedAt,
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *qcaRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *qcaRepo) DeleteByQuestion(ctx context.Context, questionID primitive.ObjectID) ([]*model.QCA, error) {
	return r.deleteMany(ctx, bson.M{"question_id": questionID})
}

func (r *qcaRepo) DeleteByCourse(ctx context.Context, courseID primitive.ObjectID) ([]*model.QCA, error) {
	return r.deleteMany(ctx, bson.M{"course_id": courseID})
}

// deleteMany removes the matching associations and returns what was removed
func (r *qcaRepo) deleteMany(ctx context.Context, filter bson.M) ([]*model.QCA, error) {
	removed, err := r.find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(removed) == 0 {
		return nil, nil
	}
	ids := make([]primitive.ObjectID, len(removed))
	for i, q := range removed {
		ids[i] = q.ID
	}
	if _, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, err
	}
	return removed, nil
}
