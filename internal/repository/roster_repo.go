package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/scholaris-io/results-api/internal/models"
)

// RosterRepository reads master data the pipeline depends on but never
// writes: classes and their enrolled students.
type RosterRepository interface {
	GetClass(ctx context.Context, classID uint) (models.Class, error)
	ListStudentsByClass(ctx context.Context, classID uint) ([]models.Student, error)
}

type rosterRepository struct {
	db *gorm.DB
}

// NewRosterRepository instantiates a GORM-backed roster repository.
func NewRosterRepository(db *gorm.DB) RosterRepository {
	return &rosterRepository{db: db}
}

func (r *rosterRepository) GetClass(ctx context.Context, classID uint) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).First(&class, classID).Error; err != nil {
		return models.Class{}, err
	}

	return class, nil
}

func (r *rosterRepository) ListStudentsByClass(ctx context.Context, classID uint) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("id ASC").
		Find(&students).Error
	if err != nil {
		return nil, err
	}

	return students, nil
}
