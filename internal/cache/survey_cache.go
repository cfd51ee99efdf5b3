package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"narsus/internal/model"
)

// SurveyCache holds the survey-for-taking payload: the survey together with
// its de-duplicated question details
type SurveyCache interface {
	Get(ctx context.Context, surveyID string) (*model.SurveyWithQuestions, error)
	Set(ctx context.Context, survey *model.SurveyWithQuestions) error
	Invalidate(ctx context.Context, surveyIDs ...string) error
}

type surveyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSurveyCache creates a new survey cache
func NewSurveyCache(client *redis.Client, ttl time.Duration) SurveyCache {
	return &surveyCache{
		client: client,
		ttl:    ttl,
	}
}

func surveyKey(surveyID string) string {
	return fmt.Sprintf("survey:%s:taking", surveyID)
}

// Get returns nil, nil on a cache miss
func (c *surveyCache) Get(ctx context.Context, surveyID string) (*model.SurveyWithQuestions, error) {
	data, err := c.client.Get(ctx, surveyKey(surveyID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var payload model.SurveyWithQuestions
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *surveyCache) Set(ctx context.Context, survey *model.SurveyWithQuestions) error {
	data, err := json.Marshal(survey)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, surveyKey(survey.ID.Hex()), data, c.ttl).Err()
}

func (c *surveyCache) Invalidate(ctx context.Context, surveyIDs ...string) error {
	if len(surveyIDs) == 0 {
		return nil
	}
	keys := make([]string, len(surveyIDs))
	for i, id := range surveyIDs {
		keys[i] = surveyKey(id)
	}
	return c.client.Del(ctx, keys...).Err()
}
