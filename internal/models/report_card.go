package models

import "time"

// ReportCard is the published artifact for one student in one exam/class.
// Regeneration deletes and fully replaces all cards for the (exam, class)
// pair; there is no partial update.
type ReportCard struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	ExamID        uint                `gorm:"uniqueIndex:idx_card_identity;index:idx_card_scope;not null" json:"exam_id"`
	ClassID       uint                `gorm:"uniqueIndex:idx_card_identity;index:idx_card_scope;not null" json:"class_id"`
	StudentID     uint                `gorm:"uniqueIndex:idx_card_identity;not null" json:"student_id"`
	SubjectCount  int                 `gorm:"not null" json:"subject_count"`
	TotalMarks    float64             `gorm:"not null" json:"total_marks"`
	TotalMaxMarks float64             `gorm:"not null" json:"total_max_marks"`
	Percentage    float64             `gorm:"not null" json:"percentage"`
	Average       float64             `gorm:"not null" json:"average"`
	OverallGrade  string              `gorm:"size:8;not null" json:"overall_grade"`
	ClassRank     int                 `gorm:"not null" json:"class_rank"`
	ClassSize     int                 `gorm:"not null" json:"class_size"`
	Remarks       string              `gorm:"type:text" json:"remarks,omitempty"`
	GeneratedBy   uint                `gorm:"not null" json:"generated_by"`
	GeneratedAt   time.Time           `gorm:"not null" json:"generated_at"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Subjects      []ReportCardSubject `json:"subjects,omitempty"`
}

// ReportCardSubject is one subject line on a report card: the student's
// mark and grade next to the class-wide statistics for that subject.
type ReportCardSubject struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	ReportCardID uint    `gorm:"index;not null" json:"report_card_id"`
	SubjectID    uint    `gorm:"not null" json:"subject_id"`
	SubjectName  string  `gorm:"size:128;not null" json:"subject_name"`
	Marks        float64 `gorm:"not null" json:"marks"`
	MaxMarks     float64 `gorm:"not null" json:"max_marks"`
	Grade        string  `gorm:"size:8;not null" json:"grade"`
	ClassAverage float64 `gorm:"not null" json:"class_average"`
	ClassMedian  float64 `gorm:"not null" json:"class_median"`
}
