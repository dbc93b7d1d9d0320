package models

import "time"

// ExamStatus tracks the lifecycle of an exam sitting.
type ExamStatus string

const (
	ExamStatusScheduled ExamStatus = "SCHEDULED"
	ExamStatusOngoing   ExamStatus = "ONGOING"
	ExamStatusCompleted ExamStatus = "COMPLETED"
)

// Exam represents one sitting of assessments for a grade, term and year.
// Exams are created by admin actions; once results exist only the status
// may change.
type Exam struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	Name         string        `gorm:"size:255;not null" json:"name"`
	Grade        int           `gorm:"not null" json:"grade"`
	AcademicYear string        `gorm:"size:16;not null" json:"academic_year"`
	Term         int           `gorm:"not null" json:"term"`
	Type         string        `gorm:"size:32;not null" json:"type"`
	GradeScale   string        `gorm:"size:32;not null;default:'standard'" json:"grade_scale"`
	Status       ExamStatus    `gorm:"size:16;not null;default:'SCHEDULED'" json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Subjects     []ExamSubject `json:"subjects,omitempty"`
}

// ExamSubject is one subject's assessment slot within an exam, owned by a
// single teacher. Unique per (exam, subject). The marks_entered flag is a
// one-way lock: once set, result rows underneath it are frozen.
type ExamSubject struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	ExamID         uint         `gorm:"uniqueIndex:idx_exam_subject;not null" json:"exam_id"`
	SubjectID      uint         `gorm:"uniqueIndex:idx_exam_subject;not null" json:"subject_id"`
	TeacherID      uint         `gorm:"index;not null" json:"teacher_id"`
	MaxMarks       float64      `gorm:"not null" json:"max_marks"`
	MarksEntered   bool         `gorm:"not null;default:false" json:"marks_entered"`
	MarksEnteredAt *time.Time   `json:"marks_entered_at,omitempty"`
	MarksEnteredBy *uint        `json:"marks_entered_by,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	Subject        *Subject     `json:"subject,omitempty"`
	Results        []ExamResult `json:"results,omitempty"`
}
