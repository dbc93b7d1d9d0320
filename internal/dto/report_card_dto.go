package dto

import (
	"time"

	"github.com/scholaris-io/results-api/internal/models"
)

// GenerateReportCardsRequest carries optional per-student remarks entered by
// the supervising teacher during generation. Keys are student IDs.
type GenerateReportCardsRequest struct {
	Remarks map[uint]string `json:"remarks" validate:"omitempty"`
}

// GenerateReportCardsResponse summarizes a completed generation run.
type GenerateReportCardsResponse struct {
	ExamID            uint   `json:"exam_id"`
	ClassID           uint   `json:"class_id"`
	StudentsProcessed int    `json:"students_processed"`
	WorkflowStage     string `json:"workflow_stage,omitempty"`
}

// ReportCardQuery filters report-card reads. Role filtering narrows it
// further server-side.
type ReportCardQuery struct {
	ExamID    uint `query:"exam_id" validate:"required,gt=0"`
	ClassID   uint `query:"class_id" validate:"omitempty,gt=0"`
	StudentID uint `query:"student_id" validate:"omitempty,gt=0"`
}

// ReportCardSubjectResponse is one subject line of a report card.
type ReportCardSubjectResponse struct {
	SubjectID    uint    `json:"subject_id"`
	SubjectName  string  `json:"subject_name"`
	Marks        float64 `json:"marks"`
	MaxMarks     float64 `json:"max_marks"`
	Grade        string  `json:"grade"`
	ClassAverage float64 `json:"class_average"`
	ClassMedian  float64 `json:"class_median"`
}

// ReportCardResponse is the published card for one student.
type ReportCardResponse struct {
	ID            uint                        `json:"id"`
	ExamID        uint                        `json:"exam_id"`
	ClassID       uint                        `json:"class_id"`
	StudentID     uint                        `json:"student_id"`
	SubjectCount  int                         `json:"subject_count"`
	TotalMarks    float64                     `json:"total_marks"`
	TotalMaxMarks float64                     `json:"total_max_marks"`
	Percentage    float64                     `json:"percentage"`
	Average       float64                     `json:"average"`
	OverallGrade  string                      `json:"overall_grade"`
	ClassRank     int                         `json:"class_rank"`
	ClassSize     int                         `json:"class_size"`
	Remarks       string                      `json:"remarks,omitempty"`
	GeneratedAt   time.Time                   `json:"generated_at"`
	Subjects      []ReportCardSubjectResponse `json:"subjects"`
}

// NewReportCardResponse converts a ReportCard model into a DTO.
func NewReportCardResponse(model models.ReportCard) ReportCardResponse {
	subjects := make([]ReportCardSubjectResponse, 0, len(model.Subjects))
	for _, subject := range model.Subjects {
		subjects = append(subjects, ReportCardSubjectResponse{
			SubjectID:    subject.SubjectID,
			SubjectName:  subject.SubjectName,
			Marks:        subject.Marks,
			MaxMarks:     subject.MaxMarks,
			Grade:        subject.Grade,
			ClassAverage: subject.ClassAverage,
			ClassMedian:  subject.ClassMedian,
		})
	}

	return ReportCardResponse{
		ID:            model.ID,
		ExamID:        model.ExamID,
		ClassID:       model.ClassID,
		StudentID:     model.StudentID,
		SubjectCount:  model.SubjectCount,
		TotalMarks:    model.TotalMarks,
		TotalMaxMarks: model.TotalMaxMarks,
		Percentage:    model.Percentage,
		Average:       model.Average,
		OverallGrade:  model.OverallGrade,
		ClassRank:     model.ClassRank,
		ClassSize:     model.ClassSize,
		Remarks:       model.Remarks,
		GeneratedAt:   model.GeneratedAt,
		Subjects:      subjects,
	}
}

// NewReportCardResponseSlice converts a slice of cards.
func NewReportCardResponseSlice(cards []models.ReportCard) []ReportCardResponse {
	responses := make([]ReportCardResponse, 0, len(cards))
	for _, card := range cards {
		responses = append(responses, NewReportCardResponse(card))
	}
	return responses
}
