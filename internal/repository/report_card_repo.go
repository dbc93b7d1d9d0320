package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/scholaris-io/results-api/internal/models"
)

// ReportCardRepository persists published report cards.
type ReportCardRepository interface {
	// ReplaceForClass deletes every prior card (and its subject lines) for
	// the (exam, class) pair and inserts the fresh set, all in one
	// transaction.
	ReplaceForClass(ctx context.Context, examID, classID uint, cards []models.ReportCard) error
	ListForClass(ctx context.Context, examID, classID uint) ([]models.ReportCard, error)
	ListForStudent(ctx context.Context, examID, studentID uint) ([]models.ReportCard, error)
}

type reportCardRepository struct {
	db *gorm.DB
}

// NewReportCardRepository instantiates a GORM-backed report card repository.
func NewReportCardRepository(db *gorm.DB) ReportCardRepository {
	return &reportCardRepository{db: db}
}

func (r *reportCardRepository) ReplaceForClass(ctx context.Context, examID, classID uint, cards []models.ReportCard) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cardIDs := tx.Model(&models.ReportCard{}).
			Select("id").
			Where("exam_id = ? AND class_id = ?", examID, classID)

		if err := tx.Where("report_card_id IN (?)", cardIDs).Delete(&models.ReportCardSubject{}).Error; err != nil {
			return err
		}

		if err := tx.Where("exam_id = ? AND class_id = ?", examID, classID).Delete(&models.ReportCard{}).Error; err != nil {
			return err
		}

		if len(cards) == 0 {
			return nil
		}

		return tx.Create(&cards).Error
	})
}

func (r *reportCardRepository) ListForClass(ctx context.Context, examID, classID uint) ([]models.ReportCard, error) {
	var cards []models.ReportCard
	err := r.db.WithContext(ctx).
		Preload("Subjects").
		Where("exam_id = ? AND class_id = ?", examID, classID).
		Order("class_rank ASC").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}

	return cards, nil
}

func (r *reportCardRepository) ListForStudent(ctx context.Context, examID, studentID uint) ([]models.ReportCard, error) {
	var cards []models.ReportCard
	err := r.db.WithContext(ctx).
		Preload("Subjects").
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Find(&cards).Error
	if err != nil {
		return nil, err
	}

	return cards, nil
}
