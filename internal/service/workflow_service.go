package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/scholaris-io/results-api/internal/dto"
	"github.com/scholaris-io/results-api/internal/models"
	"github.com/scholaris-io/results-api/internal/repository"
)

// WorkflowService is the single authority over ReportWorkflow state. Both
// paths that reach CLASS_REVIEW (the last subject locking, and report-card
// generation) route through it; nothing else writes workflow rows.
type WorkflowService interface {
	// SubjectLocked runs the completion check after a subject lock event
	// and advances the pair to CLASS_REVIEW when every subject of the exam
	// is frozen. Returns the resulting stage and whether it advanced.
	SubjectLocked(ctx context.Context, examID, classID, actorID uint) (models.WorkflowStage, bool, error)
	// MarksCompleted moves the pair to CLASS_REVIEW with marksComplete set,
	// called after report cards have been generated. Idempotent.
	MarksCompleted(ctx context.Context, examID, classID, actorID uint) (models.ReportWorkflow, error)
	// Publish moves a reviewed pair to PUBLISHED. Admin only, enforced by
	// the caller; the stage machine rejects any other starting stage.
	Publish(ctx context.Context, examID, classID, actorID uint) (models.ReportWorkflow, error)
	Get(ctx context.Context, examID, classID uint) (dto.WorkflowResponse, error)
}

type workflowService struct {
	workflows repository.WorkflowRepository
	exams     repository.ExamRepository
	logger    zerolog.Logger
	now       func() time.Time
}

// NewWorkflowService builds the workflow coordinator.
func NewWorkflowService(workflows repository.WorkflowRepository, exams repository.ExamRepository, logger zerolog.Logger) WorkflowService {
	return &workflowService{
		workflows: workflows,
		exams:     exams,
		logger:    logger.With().Str("component", "workflow_service").Logger(),
		now:       time.Now,
	}
}

func (s *workflowService) SubjectLocked(ctx context.Context, examID, classID, actorID uint) (models.WorkflowStage, bool, error) {
	complete, err := s.exams.AllSubjectsLocked(ctx, examID)
	if err != nil {
		return "", false, err
	}

	if !complete {
		return s.currentStage(ctx, examID, classID), false, nil
	}

	workflow, err := s.advanceToReview(ctx, examID, classID, actorID)
	if err != nil {
		return "", false, err
	}

	s.logger.Info().
		Uint("exam_id", examID).
		Uint("class_id", classID).
		Msg("all subjects locked, workflow advanced to class review")

	return workflow.CurrentStage, true, nil
}

// currentStage resolves the display stage for a pair that did not advance:
// the stored stage when a workflow exists, MARKS_ENTRY before one is created.
func (s *workflowService) currentStage(ctx context.Context, examID, classID uint) models.WorkflowStage {
	workflow, err := s.workflows.Get(ctx, examID, classID)
	if err != nil {
		return models.StageMarksEntry
	}
	return workflow.CurrentStage
}

func (s *workflowService) MarksCompleted(ctx context.Context, examID, classID, actorID uint) (models.ReportWorkflow, error) {
	return s.advanceToReview(ctx, examID, classID, actorID)
}

func (s *workflowService) advanceToReview(ctx context.Context, examID, classID, actorID uint) (models.ReportWorkflow, error) {
	workflow, err := s.workflows.Get(ctx, examID, classID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		workflow = models.ReportWorkflow{
			ExamID:       examID,
			ClassID:      classID,
			CurrentStage: models.StageMarksEntry,
		}
	case err != nil:
		return models.ReportWorkflow{}, err
	}

	// Forward-only: a pair already in review or published stays put.
	if workflow.CurrentStage.Order() >= models.StageClassReview.Order() {
		workflow.MarksComplete = true
		if err := s.workflows.Upsert(ctx, &workflow); err != nil {
			return models.ReportWorkflow{}, err
		}
		return workflow, nil
	}

	workflow.CurrentStage = models.StageClassReview
	workflow.MarksComplete = true
	if err := s.appendHistory(&workflow, models.StageClassReview, actorID); err != nil {
		return models.ReportWorkflow{}, err
	}

	if err := s.workflows.Upsert(ctx, &workflow); err != nil {
		return models.ReportWorkflow{}, err
	}

	return workflow, nil
}

func (s *workflowService) Publish(ctx context.Context, examID, classID, actorID uint) (models.ReportWorkflow, error) {
	workflow, err := s.workflows.Get(ctx, examID, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ReportWorkflow{}, ErrWorkflowNotFound
		}
		return models.ReportWorkflow{}, err
	}

	if workflow.CurrentStage != models.StageClassReview {
		return models.ReportWorkflow{}, ErrInvalidStageTransition
	}

	workflow.CurrentStage = models.StagePublished
	if err := s.appendHistory(&workflow, models.StagePublished, actorID); err != nil {
		return models.ReportWorkflow{}, err
	}

	if err := s.workflows.Upsert(ctx, &workflow); err != nil {
		return models.ReportWorkflow{}, err
	}

	s.logger.Info().
		Uint("exam_id", examID).
		Uint("class_id", classID).
		Uint("actor_id", actorID).
		Msg("report cards published")

	return workflow, nil
}

func (s *workflowService) Get(ctx context.Context, examID, classID uint) (dto.WorkflowResponse, error) {
	workflow, err := s.workflows.Get(ctx, examID, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.WorkflowResponse{}, ErrWorkflowNotFound
		}
		return dto.WorkflowResponse{}, err
	}

	return dto.NewWorkflowResponse(workflow), nil
}

func (s *workflowService) appendHistory(workflow *models.ReportWorkflow, stage models.WorkflowStage, actorID uint) error {
	var transitions []models.StageTransition
	if len(workflow.StageHistory) > 0 {
		if err := json.Unmarshal(workflow.StageHistory, &transitions); err != nil {
			transitions = nil
		}
	}

	transitions = append(transitions, models.StageTransition{
		Stage:   stage,
		ActorID: actorID,
		At:      s.now(),
	})

	raw, err := json.Marshal(transitions)
	if err != nil {
		return err
	}

	workflow.StageHistory = raw
	return nil
}
