package domain

import (
	"github.com/google/uuid"
	"time"
)

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunEmpty     RunStatus = "empty"
	RunFailed    RunStatus = "failed"
)

// SyncRun is one journal entry of a sync invocation.
type SyncRun struct {
	Id           uuid.UUID `json:"id"`
	AccountId    uuid.UUID `json:"accountId"`
	Tenant       string    `json:"tenant"`
	Username     string    `json:"username,omitempty"`
	DisplayName  string    `json:"displayName,omitempty"`
	Status       RunStatus `json:"status"`
	PostsFetched int       `json:"postsFetched"`
	PostsSynced  int       `json:"postsSynced"`
	PostsSkipped int       `json:"postsSkipped"`
	Message      string    `json:"message"`
	// previous username when the run tore it down
	ReconciledFrom string    `json:"reconciledFrom,omitempty"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
}
