package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/scholaris-io/results-api/internal/dto"
	"github.com/scholaris-io/results-api/internal/grading"
	"github.com/scholaris-io/results-api/internal/models"
	"github.com/scholaris-io/results-api/internal/observability"
	"github.com/scholaris-io/results-api/internal/repository"
)

// MarksService accepts raw per-subject marks and freezes them. Submitting
// is an all-or-nothing act: the batch replaces every existing row for the
// subject, assigns grades, and locks the subject in one transaction.
type MarksService interface {
	SubmitMarks(ctx context.Context, examID, classID, subjectID uint, actor Actor, payload dto.MarksSubmissionRequest) (dto.MarksSubmissionResponse, error)
	LockStatus(ctx context.Context, examID, subjectID uint) (dto.SubjectLockResponse, error)
}

type marksService struct {
	exams     repository.ExamRepository
	results   repository.ResultRepository
	roster    repository.RosterRepository
	workflow  WorkflowService
	scales    *grading.Registry
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewMarksService builds the marks submission service.
func NewMarksService(
	exams repository.ExamRepository,
	results repository.ResultRepository,
	roster repository.RosterRepository,
	workflow WorkflowService,
	scales *grading.Registry,
	validate *validator.Validate,
	logger zerolog.Logger,
) MarksService {
	return &marksService{
		exams:     exams,
		results:   results,
		roster:    roster,
		workflow:  workflow,
		scales:    scales,
		validator: validate,
		logger:    logger.With().Str("component", "marks_service").Logger(),
		now:       time.Now,
	}
}

func (s *marksService) SubmitMarks(ctx context.Context, examID, classID, subjectID uint, actor Actor, payload dto.MarksSubmissionRequest) (dto.MarksSubmissionResponse, error) {
	tracer := otel.Tracer("github.com/scholaris-io/results-api/internal/service")
	ctx, span := tracer.Start(ctx, "marks.submit")
	span.SetAttributes(
		attribute.Int64("marks.exam_id", int64(examID)),
		attribute.Int64("marks.subject_id", int64(subjectID)),
		attribute.Int64("marks.actor_id", int64(actor.ID)),
	)
	defer span.End()

	response, err := s.submit(ctx, examID, classID, subjectID, actor, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_failed")
		observability.MarksSubmissions().WithLabelValues(submissionOutcome(err)).Inc()
		return dto.MarksSubmissionResponse{}, err
	}

	observability.MarksSubmissions().WithLabelValues("accepted").Inc()
	return response, nil
}

func (s *marksService) submit(ctx context.Context, examID, classID, subjectID uint, actor Actor, payload dto.MarksSubmissionRequest) (dto.MarksSubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MarksSubmissionResponse{}, err
	}

	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MarksSubmissionResponse{}, ErrExamNotFound
		}
		return dto.MarksSubmissionResponse{}, err
	}

	if _, err := s.roster.GetClass(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MarksSubmissionResponse{}, ErrClassNotFound
		}
		return dto.MarksSubmissionResponse{}, err
	}

	subject, err := s.exams.GetSubject(ctx, examID, subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MarksSubmissionResponse{}, ErrExamSubjectNotFound
		}
		return dto.MarksSubmissionResponse{}, err
	}

	if !actor.IsAdmin() && (actor.Role != RoleTeacher || actor.ID != subject.TeacherID) {
		return dto.MarksSubmissionResponse{}, ErrNotAssignedTeacher
	}

	// Early reject; the conditional lock claim inside the transaction is
	// what actually closes the race.
	if subject.MarksEntered {
		return dto.MarksSubmissionResponse{}, ErrSubjectLocked
	}

	students, err := s.roster.ListStudentsByClass(ctx, classID)
	if err != nil {
		return dto.MarksSubmissionResponse{}, err
	}

	enrolled := make(map[uint]struct{}, len(students))
	for _, student := range students {
		enrolled[student.ID] = struct{}{}
	}

	if issues := validateEntries(payload.Marks, subject.MaxMarks, enrolled); len(issues) > 0 {
		return dto.MarksSubmissionResponse{}, &MarksValidationError{Issues: issues}
	}

	scale := s.scales.Resolve(exam.GradeScale)
	lockedAt := s.now()

	rows := make([]models.ExamResult, 0, len(payload.Marks))
	for _, entry := range payload.Marks {
		percentage := entry.Marks / subject.MaxMarks * 100
		rows = append(rows, models.ExamResult{
			ExamSubjectID: subject.ID,
			ExamID:        examID,
			StudentID:     entry.StudentID,
			Marks:         entry.Marks,
			Grade:         scale.Grade(percentage),
		})
	}

	if err := s.results.ReplaceForSubjectAndLock(ctx, subject.ID, rows, actor.ID, lockedAt); err != nil {
		if errors.Is(err, repository.ErrAlreadyLocked) {
			return dto.MarksSubmissionResponse{}, ErrSubjectLocked
		}
		return dto.MarksSubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("exam_id", examID).
		Uint("subject_id", subjectID).
		Uint("actor_id", actor.ID).
		Int("results", len(rows)).
		Msg("marks submitted and subject locked")

	response := dto.MarksSubmissionResponse{
		ExamID:       examID,
		SubjectID:    subjectID,
		ResultsSaved: len(rows),
		Locked:       true,
		LockedAt:     lockedAt,
	}

	// The submission is already committed; a workflow hiccup must not turn
	// it into a failure.
	stage, _, err := s.workflow.SubjectLocked(ctx, examID, classID, actor.ID)
	if err != nil {
		s.logger.Warn().Err(err).
			Uint("exam_id", examID).
			Uint("class_id", classID).
			Msg("workflow completion check failed after lock")
		return response, nil
	}
	response.WorkflowStage = string(stage)

	return response, nil
}

func (s *marksService) LockStatus(ctx context.Context, examID, subjectID uint) (dto.SubjectLockResponse, error) {
	subject, err := s.exams.GetSubject(ctx, examID, subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubjectLockResponse{}, ErrExamSubjectNotFound
		}
		return dto.SubjectLockResponse{}, err
	}

	return dto.NewSubjectLockResponse(subject), nil
}

func validateEntries(entries []dto.MarkEntry, maxMarks float64, enrolled map[uint]struct{}) []dto.MarkEntryIssue {
	var issues []dto.MarkEntryIssue
	seen := make(map[uint]struct{}, len(entries))

	for _, entry := range entries {
		if _, duplicate := seen[entry.StudentID]; duplicate {
			issues = append(issues, dto.MarkEntryIssue{StudentID: entry.StudentID, Reason: "duplicate entry in batch"})
			continue
		}
		seen[entry.StudentID] = struct{}{}

		if _, ok := enrolled[entry.StudentID]; !ok {
			issues = append(issues, dto.MarkEntryIssue{StudentID: entry.StudentID, Reason: "student not enrolled in class"})
			continue
		}

		if entry.Marks < 0 || entry.Marks > maxMarks || math.IsNaN(entry.Marks) {
			issues = append(issues, dto.MarkEntryIssue{
				StudentID: entry.StudentID,
				Reason:    fmt.Sprintf("marks must be between 0 and %g", maxMarks),
			})
		}
	}

	return issues
}

func submissionOutcome(err error) string {
	var validationErr *MarksValidationError
	switch {
	case errors.Is(err, ErrSubjectLocked):
		return "locked"
	case errors.As(err, &validationErr):
		return "validation_failed"
	case errors.Is(err, ErrNotAssignedTeacher):
		return "forbidden"
	default:
		return "error"
	}
}
