package service

import (
	"time"

	"narsus/internal/model"
	"narsus/internal/scoring"
)

// Broadcaster pushes live events to connected survey owners (avoids import cycle)
type Broadcaster interface {
	BroadcastSubmission(ownerID, surveyID string, event *model.AttemptSubmittedEvent)
}

// SubmissionRecorder records metrics for a scored submission
type SubmissionRecorder interface {
	AttemptSubmitted(outcomes map[string]scoring.OutcomeCategory, took time.Duration)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastSubmission(string, string, *model.AttemptSubmittedEvent) {}
