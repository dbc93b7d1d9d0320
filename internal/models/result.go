package models

import "time"

// ExamResult is one student's mark for one exam subject. Unique per
// (exam subject, student). Rows exist only while the owning ExamSubject is
// unlocked; the submission path replaces the full set rather than patching
// individual rows.
type ExamResult struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ExamSubjectID uint      `gorm:"uniqueIndex:idx_subject_student;not null" json:"exam_subject_id"`
	ExamID        uint      `gorm:"index;not null" json:"exam_id"`
	StudentID     uint      `gorm:"uniqueIndex:idx_subject_student;not null" json:"student_id"`
	Marks         float64   `gorm:"not null" json:"marks"`
	Grade         string    `gorm:"size:8;not null" json:"grade"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
