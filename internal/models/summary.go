package models

import "time"

// ExamSummary is the per-student roll-up across all subjects of one exam.
// It is a disposable projection: recomputed wholesale from ExamResult rows,
// never patched incrementally.
type ExamSummary struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ExamID        uint      `gorm:"uniqueIndex:idx_exam_student;not null" json:"exam_id"`
	StudentID     uint      `gorm:"uniqueIndex:idx_exam_student;not null" json:"student_id"`
	SubjectCount  int       `gorm:"not null" json:"subject_count"`
	TotalMarks    float64   `gorm:"not null" json:"total_marks"`
	TotalMaxMarks float64   `gorm:"not null" json:"total_max_marks"`
	Percentage    float64   `gorm:"not null" json:"percentage"`
	Average       float64   `gorm:"not null" json:"average"`
	OverallGrade  string    `gorm:"size:8;not null" json:"overall_grade"`
	ClassRank     int       `gorm:"not null" json:"class_rank"`
	ClassSize     int       `gorm:"not null" json:"class_size"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
