package models

import (
	"time"

	"lienzo/internal/params"
)

type RunStatus string

const (
	RunQueued  RunStatus = "QUEUED"
	RunRunning RunStatus = "RUNNING"
	RunDone    RunStatus = "DONE"
	// RunEmpty: finished, but no item succeeded, so there is no archive.
	RunEmpty  RunStatus = "EMPTY"
	RunFailed RunStatus = "FAILED"
)

// Terminal reports whether the worker is finished with the run.
func (s RunStatus) Terminal() bool {
	return s == RunDone || s == RunEmpty || s == RunFailed
}

type SourceKind string

const (
	SourceTable  SourceKind = "table"
	SourceUpload SourceKind = "upload"
)

// RunInput is one stored input file: the table, or one uploaded image.
type RunInput struct {
	Name      string `json:"name"`
	ObjectKey string `json:"object_key"`
	Size      int64  `json:"size"`
}

type Run struct {
	ID             string        `json:"id"`
	WorkspaceName  string        `json:"workspace_name"`
	Status         RunStatus     `json:"status"`
	SourceKind     SourceKind    `json:"source_kind"`
	Params         params.Params `json:"params"`
	Inputs         []RunInput    `json:"inputs"`
	ArchiveKey     string        `json:"archive_key,omitempty"`
	SuccessCount   int           `json:"success_count"`
	FailureCount   int           `json:"failure_count"`
	SkippedCount   int           `json:"skipped_count"`
	OverwriteCount int           `json:"overwrite_count"`
	ErrorText      string        `json:"error,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	FinishedAt     *time.Time    `json:"finished_at,omitempty"`
}

type ItemStatus string

const (
	ItemSuccess ItemStatus = "SUCCESS"
	ItemFailed  ItemStatus = "FAILED"
	ItemSkipped ItemStatus = "SKIPPED"
)

// RunItem is the stored result of one work item or skipped table row.
type RunItem struct {
	RunID    string     `json:"-"`
	Seq      int        `json:"seq"`
	Filename string     `json:"filename,omitempty"`
	Origin   string     `json:"origin"`
	Status   ItemStatus `json:"status"`
	Stage    string     `json:"stage,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// Completion is what the worker writes when a run ends without error.
type Completion struct {
	Status         RunStatus
	ArchiveKey     string
	SuccessCount   int
	FailureCount   int
	SkippedCount   int
	OverwriteCount int
}
