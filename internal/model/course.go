package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course is a scoring dimension a survey evaluates, such as a skill or subject
type Course struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Code        string             `json:"code" bson:"code"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	CreatedBy   primitive.ObjectID `json:"created_by" bson:"created_by"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// CourseCreate is the request body for POST /courses
type CourseCreate struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// CourseUpdate is the request body for PUT /courses/{id}. Nil fields are left unchanged.
type CourseUpdate struct {
	Name        *string `json:"name"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
}
