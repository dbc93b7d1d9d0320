package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/scholaris-io/results-api/internal/dto"
)

// Actor identifies the authenticated caller as supplied by the identity
// provider. The pipeline trusts the role string and the teacher/subject
// assignment recorded in master data.
type Actor struct {
	ID   uint
	Role string
}

// Role strings recognised by the pipeline.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ErrExamNotFound indicates the requested exam does not exist.
var ErrExamNotFound = errors.New("exam not found")

// ErrExamSubjectNotFound indicates the exam does not offer the subject.
var ErrExamSubjectNotFound = errors.New("exam subject not found")

// ErrClassNotFound indicates the requested class does not exist.
var ErrClassNotFound = errors.New("class not found")

// ErrNotAssignedTeacher indicates the caller does not own the exam subject.
var ErrNotAssignedTeacher = errors.New("caller is not the assigned subject teacher")

// ErrNotClassSupervisor indicates the caller does not supervise the class.
var ErrNotClassSupervisor = errors.New("caller is not the supervising class teacher")

// ErrSubjectLocked indicates the exam subject's marks are already frozen.
var ErrSubjectLocked = errors.New("marks already entered for this subject")

// ErrNoSubjectsConfigured indicates the exam has no subjects to finalize.
var ErrNoSubjectsConfigured = errors.New("exam has no subjects configured")

// ErrWorkflowNotFound indicates no workflow exists yet for the pair.
var ErrWorkflowNotFound = errors.New("report workflow not found")

// ErrInvalidStageTransition indicates a workflow move that the stage
// machine does not permit.
var ErrInvalidStageTransition = errors.New("invalid workflow stage transition")

// ErrReportAccessDenied indicates the caller may not read the requested
// report cards.
var ErrReportAccessDenied = errors.New("report card access denied")

// MarksValidationError rejects a whole submission batch: no entry is
// written when any entry is invalid.
type MarksValidationError struct {
	Issues []dto.MarkEntryIssue
}

func (e *MarksValidationError) Error() string {
	reasons := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		reasons = append(reasons, fmt.Sprintf("student %d: %s", issue.StudentID, issue.Reason))
	}
	return "invalid marks submission: " + strings.Join(reasons, "; ")
}

// IncompleteSubjectsError blocks report-card generation while any exam
// subject remains unlocked. Subjects lists the offending subject names.
type IncompleteSubjectsError struct {
	Subjects []string
}

func (e *IncompleteSubjectsError) Error() string {
	return "marks not entered for all subjects: " + strings.Join(e.Subjects, ", ")
}
