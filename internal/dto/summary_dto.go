package dto

import "github.com/scholaris-io/results-api/internal/models"

// ExamSummaryResponse is the per-student roll-up for one exam.
type ExamSummaryResponse struct {
	ExamID        uint    `json:"exam_id"`
	StudentID     uint    `json:"student_id"`
	SubjectCount  int     `json:"subject_count"`
	TotalMarks    float64 `json:"total_marks"`
	TotalMaxMarks float64 `json:"total_max_marks"`
	Percentage    float64 `json:"percentage"`
	Average       float64 `json:"average"`
	OverallGrade  string  `json:"overall_grade"`
	ClassRank     int     `json:"class_rank"`
	ClassSize     int     `json:"class_size"`
}

// NewExamSummaryResponse converts an ExamSummary model into a DTO.
func NewExamSummaryResponse(model models.ExamSummary) ExamSummaryResponse {
	return ExamSummaryResponse{
		ExamID:        model.ExamID,
		StudentID:     model.StudentID,
		SubjectCount:  model.SubjectCount,
		TotalMarks:    model.TotalMarks,
		TotalMaxMarks: model.TotalMaxMarks,
		Percentage:    model.Percentage,
		Average:       model.Average,
		OverallGrade:  model.OverallGrade,
		ClassRank:     model.ClassRank,
		ClassSize:     model.ClassSize,
	}
}

// NewExamSummaryResponseSlice converts a slice of summaries.
func NewExamSummaryResponseSlice(summaries []models.ExamSummary) []ExamSummaryResponse {
	responses := make([]ExamSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		responses = append(responses, NewExamSummaryResponse(summary))
	}
	return responses
}
