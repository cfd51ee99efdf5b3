package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"narsus/internal/model"
	"narsus/internal/repository"
)

// CourseService manages courses and the cascades of deleting one
type CourseService struct {
	courses repository.CourseRepo
	qcas    repository.QCARepo
	surveys repository.SurveyRepo
	upkeep  *SurveyUpkeep
	log     *zap.Logger
}

// NewCourseService creates a new course service
func NewCourseService(courses repository.CourseRepo, qcas repository.QCARepo, surveys repository.SurveyRepo, upkeep *SurveyUpkeep, log *zap.Logger) *CourseService {
	return &CourseService{
		courses: courses,
		qcas:    qcas,
		surveys: surveys,
		upkeep:  upkeep,
		log:     log,
	}
}

// Create adds a course with a unique code
func (s *CourseService) Create(ctx context.Context, teacherID primitive.ObjectID, req *model.CourseCreate) (*model.Course, error) {
	course := &model.Course{
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.TrimSpace(req.Code),
		Description: req.Description,
		CreatedBy:   teacherID,
	}
	if err := validateCourse(course); err != nil {
		return nil, err
	}
	if err := s.checkCodeFree(ctx, course.Code, primitive.NilObjectID); err != nil {
		return nil, err
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, translate(err, "course code")
	}
	return course, nil
}

// Get returns one course
func (s *CourseService) Get(ctx context.Context, id primitive.ObjectID) (*model.Course, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "course")
	}
	return course, nil
}

// List returns every course ordered by name
func (s *CourseService) List(ctx context.Context) ([]*model.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Update changes the given course fields. A new code must still be unique.
func (s *CourseService) Update(ctx context.Context, id primitive.ObjectID, req *model.CourseUpdate) (*model.Course, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "course")
	}
	if req.Name != nil {
		course.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Code != nil && strings.TrimSpace(*req.Code) != course.Code {
		course.Code = strings.TrimSpace(*req.Code)
		if err := s.checkCodeFree(ctx, course.Code, course.ID); err != nil {
			return nil, err
		}
	}
	if err := validateCourse(course); err != nil {
		return nil, err
	}
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, translate(err, "course code")
	}
	if err := s.upkeep.refreshCourses(ctx, course.ID); err != nil {
		s.log.Warn("refresh surveys after course update", zap.String("course_id", course.ID.Hex()), zap.Error(err))
	}
	return course, nil
}

// Delete removes a course, its QCAs, and its place in draft surveys
func (s *CourseService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.courses.GetByID(ctx, id); err != nil {
		return translate(err, "course")
	}
	// published surveys keep the course id, so collect them before the QCAs go
	affected, err := s.surveys.ListByCourse(ctx, id)
	if err != nil {
		return fmt.Errorf("list surveys for course: %w", err)
	}

	removed, err := s.qcas.DeleteByCourse(ctx, id)
	if err != nil {
		return fmt.Errorf("delete course qcas: %w", err)
	}
	if err := s.surveys.RemoveCourseFromDrafts(ctx, id); err != nil {
		return fmt.Errorf("detach course from drafts: %w", err)
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		return translate(err, "course")
	}

	for _, survey := range affected {
		current, err := s.surveys.GetByID(ctx, survey.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return fmt.Errorf("reload survey: %w", err)
		}
		perCourse, overall, err := s.upkeep.maxScores(ctx, current.CourseIDs)
		if err != nil {
			return err
		}
		if err := s.surveys.SetMaxScores(ctx, current.ID, perCourse, overall); err != nil {
			return fmt.Errorf("set max scores: %w", err)
		}
		s.upkeep.invalidate(ctx, current.ID.Hex())
	}

	s.log.Info("course deleted",
		zap.String("course_id", id.Hex()),
		zap.Int("qcas_removed", len(removed)),
		zap.Int("surveys_touched", len(affected)),
	)
	return nil
}

func (s *CourseService) checkCodeFree(ctx context.Context, code string, self primitive.ObjectID) error {
	existing, err := s.courses.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup course code: %w", err)
	}
	if existing.ID != self {
		return fmt.Errorf("%w: course code %q already exists", ErrConflict, code)
	}
	return nil
}

func validateCourse(c *model.Course) error {
	if c.Name == "" {
		return invalid("name", "must not be empty")
	}
	if c.Code == "" {
		return invalid("code", "must not be empty")
	}
	return nil
}
