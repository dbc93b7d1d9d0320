package models

import "time"

// Master-data records are populated by the bulk import tooling and are
// read-only inside the results pipeline.

// Student represents an enrolled learner.
type Student struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	AdmissionNo   string    `gorm:"size:64;uniqueIndex;not null" json:"admission_no"`
	ClassID       uint      `gorm:"index;not null" json:"class_id"`
	GuardianPhone string    `gorm:"size:32" json:"guardian_phone"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Teacher represents a staff member who can own exam subjects or supervise a class.
type Teacher struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Class represents a homeroom group of students within one grade.
type Class struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Name                string    `gorm:"size:64;not null" json:"name"`
	Grade               int       `gorm:"not null" json:"grade"`
	SupervisorTeacherID uint      `gorm:"index" json:"supervisor_teacher_id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Subject represents a taught discipline.
type Subject struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Code      string    `gorm:"size:16;uniqueIndex;not null" json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
