package dto

import (
	"time"

	"github.com/scholaris-io/results-api/internal/models"
)

// MarkEntry carries one student's mark inside a submission batch.
type MarkEntry struct {
	StudentID uint    `json:"student_id" validate:"required,gt=0"`
	Marks     float64 `json:"marks" validate:"gte=0"`
}

// MarksSubmissionRequest is the body posted by a subject teacher to submit
// the full mark set for one exam subject. The batch always replaces every
// existing row for the subject.
type MarksSubmissionRequest struct {
	Marks []MarkEntry `json:"marks" validate:"required,min=1,dive"`
}

// MarkEntryIssue describes why one entry of a submission batch was rejected.
type MarkEntryIssue struct {
	StudentID uint   `json:"student_id"`
	Reason    string `json:"reason"`
}

// MarksSubmissionResponse confirms a successful submission and lock.
type MarksSubmissionResponse struct {
	ExamID        uint      `json:"exam_id"`
	SubjectID     uint      `json:"subject_id"`
	ResultsSaved  int       `json:"results_saved"`
	Locked        bool      `json:"locked"`
	LockedAt      time.Time `json:"locked_at"`
	WorkflowStage string    `json:"workflow_stage,omitempty"`
}

// SubjectLockResponse reports the lock state of one exam subject.
type SubjectLockResponse struct {
	ExamSubjectID  uint       `json:"exam_subject_id"`
	ExamID         uint       `json:"exam_id"`
	SubjectID      uint       `json:"subject_id"`
	Locked         bool       `json:"locked"`
	MarksEnteredAt *time.Time `json:"marks_entered_at,omitempty"`
	MarksEnteredBy *uint      `json:"marks_entered_by,omitempty"`
}

// NewSubjectLockResponse converts an ExamSubject into its lock view.
func NewSubjectLockResponse(subject models.ExamSubject) SubjectLockResponse {
	return SubjectLockResponse{
		ExamSubjectID:  subject.ID,
		ExamID:         subject.ExamID,
		SubjectID:      subject.SubjectID,
		Locked:         subject.MarksEntered,
		MarksEnteredAt: subject.MarksEnteredAt,
		MarksEnteredBy: subject.MarksEnteredBy,
	}
}
