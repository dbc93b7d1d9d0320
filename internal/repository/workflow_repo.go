package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scholaris-io/results-api/internal/models"
)

// WorkflowRepository persists per-(exam, class) finalization state.
type WorkflowRepository interface {
	Get(ctx context.Context, examID, classID uint) (models.ReportWorkflow, error)
	Upsert(ctx context.Context, workflow *models.ReportWorkflow) error
}

type workflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository instantiates a GORM-backed workflow repository.
func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &workflowRepository{db: db}
}

func (r *workflowRepository) Get(ctx context.Context, examID, classID uint) (models.ReportWorkflow, error) {
	var workflow models.ReportWorkflow
	err := r.db.WithContext(ctx).
		Where("exam_id = ? AND class_id = ?", examID, classID).
		First(&workflow).Error
	if err != nil {
		return models.ReportWorkflow{}, err
	}

	return workflow, nil
}

func (r *workflowRepository) Upsert(ctx context.Context, workflow *models.ReportWorkflow) error {
	if workflow.ID != 0 {
		return r.db.WithContext(ctx).Save(workflow).Error
	}

	// First write for the scope. The conflict clause covers the race where
	// two requests create the same (exam, class) row at once.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "exam_id"}, {Name: "class_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_stage", "marks_complete", "stage_history", "updated_at",
		}),
	}).Create(workflow).Error
}
