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

// CourseRepo handles MongoDB operations for courses
type CourseRepo interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Course, error)
	GetByCode(ctx context.Context, code string) (*model.Course, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Course, error)
	List(ctx context.Context) ([]*model.Course, error)
	Update(ctx context.Context, course *model.Course) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type courseRepo struct {
	collection *mongo.Collection
}

// NewCourseRepo creates a new course repository
func NewCourseRepo(db *mongo.Database) CourseRepo {
	return &courseRepo{
		collection: db.Collection(CoursesCollection),
	}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, course)
	if err != nil {
		return wrapWriteErr(err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		course.ID = oid
	}
	return nil
}

func (r *courseRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Course, error) {
	var course model.Course
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&course); err != nil {
		return nil, wrapFindErr(err)
	}
	return &course, nil
}

func (r *courseRepo) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	var course model.Course
	if err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&course); err != nil {
		return nil, wrapFindErr(err)
	}
	return &course, nil
}

func (r *courseRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *courseRepo) List(ctx context.Context) ([]*model.Course, error) {
	return r.find(ctx, bson.M{})
}

func (r *courseRepo) find(ctx context.Context, filter bson.M) ([]*model.Course, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var courses []*model.Course
	if err := cursor.All(ctx, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepo) Update(ctx context.Context, course *model.Course) error {
	course.UpdatedAt = time.Now().UTC()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": course.ID}, course)
	if err != nil {
		return wrapWriteErr(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *courseRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
