package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/scholaris-io/results-api/internal/models"
)

// ExamRepository defines read access to exam sittings and their subjects.
type ExamRepository interface {
	GetExam(ctx context.Context, examID uint) (models.Exam, error)
	GetSubject(ctx context.Context, examID, subjectID uint) (models.ExamSubject, error)
	ListSubjects(ctx context.Context, examID uint) ([]models.ExamSubject, error)
	ListUnlockedSubjects(ctx context.Context, examID uint) ([]models.ExamSubject, error)
	AllSubjectsLocked(ctx context.Context, examID uint) (bool, error)
}

type examRepository struct {
	db *gorm.DB
}

// NewExamRepository instantiates a GORM-backed exam repository.
func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) GetExam(ctx context.Context, examID uint) (models.Exam, error) {
	var exam models.Exam
	if err := r.db.WithContext(ctx).First(&exam, examID).Error; err != nil {
		return models.Exam{}, err
	}

	return exam, nil
}

func (r *examRepository) GetSubject(ctx context.Context, examID, subjectID uint) (models.ExamSubject, error) {
	var subject models.ExamSubject
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("exam_id = ? AND subject_id = ?", examID, subjectID).
		First(&subject).Error
	if err != nil {
		return models.ExamSubject{}, err
	}

	return subject, nil
}

func (r *examRepository) ListSubjects(ctx context.Context, examID uint) ([]models.ExamSubject, error) {
	var subjects []models.ExamSubject
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("exam_id = ?", examID).
		Order("subject_id ASC").
		Find(&subjects).Error
	if err != nil {
		return nil, err
	}

	return subjects, nil
}

func (r *examRepository) ListUnlockedSubjects(ctx context.Context, examID uint) ([]models.ExamSubject, error) {
	var subjects []models.ExamSubject
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("exam_id = ? AND marks_entered = ?", examID, false).
		Order("subject_id ASC").
		Find(&subjects).Error
	if err != nil {
		return nil, err
	}

	return subjects, nil
}

func (r *examRepository) AllSubjectsLocked(ctx context.Context, examID uint) (bool, error) {
	var total, locked int64
	query := r.db.WithContext(ctx).Model(&models.ExamSubject{}).Where("exam_id = ?", examID)

	if err := query.Count(&total).Error; err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}

	err := r.db.WithContext(ctx).Model(&models.ExamSubject{}).
		Where("exam_id = ? AND marks_entered = ?", examID, true).
		Count(&locked).Error
	if err != nil {
		return false, err
	}

	return locked == total, nil
}
