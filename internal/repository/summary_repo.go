package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/scholaris-io/results-api/internal/models"
)

// SummaryRepository persists the derived per-student exam roll-ups.
type SummaryRepository interface {
	// ReplaceForExam swaps the full summary set for an exam in one
	// transaction. Summaries are projections: they are never patched.
	ReplaceForExam(ctx context.Context, examID uint, summaries []models.ExamSummary) error
	ListByExam(ctx context.Context, examID uint) ([]models.ExamSummary, error)
}

type summaryRepository struct {
	db *gorm.DB
}

// NewSummaryRepository instantiates a GORM-backed summary repository.
func NewSummaryRepository(db *gorm.DB) SummaryRepository {
	return &summaryRepository{db: db}
}

func (r *summaryRepository) ReplaceForExam(ctx context.Context, examID uint, summaries []models.ExamSummary) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", examID).Delete(&models.ExamSummary{}).Error; err != nil {
			return err
		}

		if len(summaries) == 0 {
			return nil
		}

		return tx.Create(&summaries).Error
	})
}

func (r *summaryRepository) ListByExam(ctx context.Context, examID uint) ([]models.ExamSummary, error) {
	var summaries []models.ExamSummary
	err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("class_rank ASC").
		Find(&summaries).Error
	if err != nil {
		return nil, err
	}

	return summaries, nil
}
