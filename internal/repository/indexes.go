package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	UsersCollection     = "users"
	CoursesCollection   = "courses"
	QuestionsCollection = "questions"
	QCAsCollection      = "question_course_associations"
	SurveysCollection   = "surveys"
	AttemptsCollection  = "survey_attempts"
	AnswersCollection   = "student_answers"
)

type indexSpec struct {
	collection string
	keys       bson.D
	unique     bool
}

var indexes = []indexSpec{
	{UsersCollection, bson.D{{Key: "username", Value: 1}}, true},
	{CoursesCollection, bson.D{{Key: "code", Value: 1}}, true},
	{QCAsCollection, bson.D{{Key: "question_id", Value: 1}, {Key: "course_id", Value: 1}}, true},
	{QCAsCollection, bson.D{{Key: "course_id", Value: 1}}, false},
	{SurveysCollection, bson.D{{Key: "course_ids", Value: 1}}, false},
	{SurveysCollection, bson.D{{Key: "created_by", Value: 1}}, false},
	{AttemptsCollection, bson.D{
		{Key: "student_id", Value: 1},
		{Key: "survey_id", Value: 1},
		{Key: "is_submitted", Value: 1},
	}, false},
	{AttemptsCollection, bson.D{{Key: "survey_id", Value: 1}, {Key: "submitted_at", Value: -1}}, false},
	{AnswersCollection, bson.D{{Key: "survey_attempt_id", Value: 1}, {Key: "qca_id", Value: 1}}, true},
}

// EnsureIndexes creates every index the repositories rely on. Unique indexes
// back the duplicate checks of users, courses, associations and answers.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, idx := range indexes {
		opts := options.Index().SetUnique(idx.unique)
		_, err := db.Collection(idx.collection).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: idx.keys, Options: opts})
		if err != nil {
			return fmt.Errorf("create index on %s: %w", idx.collection, err)
		}
	}
	return nil
}
