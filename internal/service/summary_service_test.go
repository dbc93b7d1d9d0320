package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scholaris-io/results-api/internal/grading"
	"github.com/scholaris-io/results-api/internal/models"
)

type fakeSummaryRepo struct {
	replaced []models.ExamSummary
	replaceN int
}

func (f *fakeSummaryRepo) ReplaceForExam(_ context.Context, examID uint, summaries []models.ExamSummary) error {
	f.replaceN++
	f.replaced = summaries
	return nil
}

func (f *fakeSummaryRepo) ListByExam(_ context.Context, examID uint) ([]models.ExamSummary, error) {
	return f.replaced, nil
}

func TestSummaryServiceRecomputeTotalsAndRanks(t *testing.T) {
	exams := &fakeExamRepo{
		exam: models.Exam{ID: 1, GradeScale: "standard"},
		subjects: []models.ExamSubject{
			{ID: 11, ExamID: 1, SubjectID: 10, MaxMarks: 100},
			{ID: 12, ExamID: 1, SubjectID: 20, MaxMarks: 50},
		},
	}
	results := &fakeResultRepo{results: []models.ExamResult{
		{ExamSubjectID: 11, ExamID: 1, StudentID: 1, Marks: 80, Grade: "A"},
		{ExamSubjectID: 12, ExamID: 1, StudentID: 1, Marks: 40, Grade: "A"},
		{ExamSubjectID: 11, ExamID: 1, StudentID: 2, Marks: 60, Grade: "C"},
		{ExamSubjectID: 12, ExamID: 1, StudentID: 2, Marks: 20, Grade: "S"},
	}}
	summaries := &fakeSummaryRepo{}
	svc := NewSummaryService(exams, results, summaries, grading.NewRegistry(), testLogger())

	responses, err := svc.RecomputeSummaries(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, responses, 2)
	require.Equal(t, 1, summaries.replaceN)

	top := responses[0]
	require.Equal(t, uint(1), top.StudentID)
	require.Equal(t, 120.0, top.TotalMarks)
	require.Equal(t, 150.0, top.TotalMaxMarks)
	require.Equal(t, 80.0, top.Percentage)
	require.Equal(t, "A", top.OverallGrade)
	require.Equal(t, 1, top.ClassRank)
	require.Equal(t, 2, top.ClassSize)

	runnerUp := responses[1]
	require.Equal(t, uint(2), runnerUp.StudentID)
	require.Equal(t, 80.0, runnerUp.TotalMarks)
	require.InDelta(t, 53.33, runnerUp.Percentage, 0.001)
	require.Equal(t, "C", runnerUp.OverallGrade)
	require.Equal(t, 2, runnerUp.ClassRank)
}

func TestSummaryServiceRecomputeTieBreaksOnStudentID(t *testing.T) {
	exams := &fakeExamRepo{
		exam: models.Exam{ID: 1, GradeScale: "standard"},
		subjects: []models.ExamSubject{
			{ID: 11, ExamID: 1, SubjectID: 10, MaxMarks: 100},
		},
	}
	results := &fakeResultRepo{results: []models.ExamResult{
		{ExamSubjectID: 11, ExamID: 1, StudentID: 7, Marks: 75, Grade: "A"},
		{ExamSubjectID: 11, ExamID: 1, StudentID: 3, Marks: 75, Grade: "A"},
		{ExamSubjectID: 11, ExamID: 1, StudentID: 5, Marks: 75, Grade: "A"},
	}}
	svc := NewSummaryService(exams, results, &fakeSummaryRepo{}, grading.NewRegistry(), testLogger())

	// The rank order must come out identical no matter how the map
	// iteration shuffles students between runs.
	for i := 0; i < 10; i++ {
		responses, err := svc.RecomputeSummaries(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, responses, 3)
		require.Equal(t, uint(3), responses[0].StudentID)
		require.Equal(t, uint(5), responses[1].StudentID)
		require.Equal(t, uint(7), responses[2].StudentID)
	}
}

func TestSummaryServiceRecomputeEmptyExam(t *testing.T) {
	exams := &fakeExamRepo{exam: models.Exam{ID: 1, GradeScale: "standard"}}
	summaries := &fakeSummaryRepo{}
	svc := NewSummaryService(exams, &fakeResultRepo{}, summaries, grading.NewRegistry(), testLogger())

	responses, err := svc.RecomputeSummaries(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, responses)
	require.Equal(t, 1, summaries.replaceN, "an exam without results still clears stale summaries")
}

func TestSummaryServiceRecomputeUnknownExam(t *testing.T) {
	exams := &fakeExamRepo{examErr: gorm.ErrRecordNotFound}
	svc := NewSummaryService(exams, &fakeResultRepo{}, &fakeSummaryRepo{}, grading.NewRegistry(), testLogger())

	_, err := svc.RecomputeSummaries(context.Background(), 1)
	require.ErrorIs(t, err, ErrExamNotFound)
}
