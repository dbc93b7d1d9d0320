package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/scholaris-io/results-api/internal/models"
)

// ErrAlreadyLocked indicates the exam subject was locked before the write
// could claim it.
var ErrAlreadyLocked = errors.New("exam subject already locked")

// ResultRepository persists raw per-student marks.
type ResultRepository interface {
	// ReplaceForSubjectAndLock atomically replaces every result row under
	// one exam subject and freezes the subject, all in a single
	// transaction. The lock is claimed with a conditional update so two
	// concurrent submissions cannot both succeed.
	ReplaceForSubjectAndLock(ctx context.Context, examSubjectID uint, results []models.ExamResult, actorID uint, at time.Time) error
	ListBySubject(ctx context.Context, examSubjectID uint) ([]models.ExamResult, error)
	ListByExam(ctx context.Context, examID uint) ([]models.ExamResult, error)
}

type resultRepository struct {
	db *gorm.DB
}

// NewResultRepository instantiates a GORM-backed result repository.
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) ReplaceForSubjectAndLock(ctx context.Context, examSubjectID uint, results []models.ExamResult, actorID uint, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Claim the lock first: zero rows affected means someone else
		// locked the subject and the whole submission must abort.
		claim := tx.Model(&models.ExamSubject{}).
			Where("id = ? AND marks_entered = ?", examSubjectID, false).
			Updates(map[string]interface{}{
				"marks_entered":    true,
				"marks_entered_at": at,
				"marks_entered_by": actorID,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return ErrAlreadyLocked
		}

		if err := tx.Where("exam_subject_id = ?", examSubjectID).Delete(&models.ExamResult{}).Error; err != nil {
			return err
		}

		if len(results) == 0 {
			return nil
		}

		return tx.Create(&results).Error
	})
}

func (r *resultRepository) ListBySubject(ctx context.Context, examSubjectID uint) ([]models.ExamResult, error) {
	var results []models.ExamResult
	err := r.db.WithContext(ctx).
		Where("exam_subject_id = ?", examSubjectID).
		Order("student_id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	return results, nil
}

func (r *resultRepository) ListByExam(ctx context.Context, examID uint) ([]models.ExamResult, error) {
	var results []models.ExamResult
	err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("student_id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	return results, nil
}
