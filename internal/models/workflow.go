package models

import (
	"time"

	"gorm.io/datatypes"
)

// WorkflowStage is the processing status of an (exam, class) pair. Stages
// only move forward; every transition is appended to StageHistory.
type WorkflowStage string

const (
	StageMarksEntry  WorkflowStage = "MARKS_ENTRY"
	StageClassReview WorkflowStage = "CLASS_REVIEW"
	StagePublished   WorkflowStage = "PUBLISHED"
)

// Order returns the position of the stage in the forward-only lifecycle,
// or -1 for an unknown stage.
func (s WorkflowStage) Order() int {
	switch s {
	case StageMarksEntry:
		return 0
	case StageClassReview:
		return 1
	case StagePublished:
		return 2
	default:
		return -1
	}
}

// ReportWorkflow tracks the finalization stage of one (exam, class) pair.
// Created/upserted when the last exam subject locks, advanced again when
// report cards are generated and when they are published.
type ReportWorkflow struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ExamID        uint           `gorm:"uniqueIndex:idx_workflow_scope;not null" json:"exam_id"`
	ClassID       uint           `gorm:"uniqueIndex:idx_workflow_scope;not null" json:"class_id"`
	CurrentStage  WorkflowStage  `gorm:"size:32;not null;default:'MARKS_ENTRY'" json:"current_stage"`
	MarksComplete bool           `gorm:"not null;default:false" json:"marks_complete"`
	StageHistory  datatypes.JSON `gorm:"type:json" json:"stage_history,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// StageTransition is one entry in a workflow's stage history.
type StageTransition struct {
	Stage   WorkflowStage `json:"stage"`
	ActorID uint          `json:"actor_id"`
	At      time.Time     `json:"at"`
}
