package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/scholaris-io/results-api/internal/dto"
	"github.com/scholaris-io/results-api/internal/grading"
	"github.com/scholaris-io/results-api/internal/models"
	"github.com/scholaris-io/results-api/internal/observability"
	"github.com/scholaris-io/results-api/internal/repository"
)

// SummaryService recomputes the per-student exam roll-ups. Summaries are
// always rebuilt wholesale from the result rows, the sole source of truth.
type SummaryService interface {
	RecomputeSummaries(ctx context.Context, examID uint) ([]dto.ExamSummaryResponse, error)
}

type summaryService struct {
	exams     repository.ExamRepository
	results   repository.ResultRepository
	summaries repository.SummaryRepository
	scales    *grading.Registry
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSummaryService builds the summary aggregator.
func NewSummaryService(
	exams repository.ExamRepository,
	results repository.ResultRepository,
	summaries repository.SummaryRepository,
	scales *grading.Registry,
	logger zerolog.Logger,
) SummaryService {
	return &summaryService{
		exams:     exams,
		results:   results,
		summaries: summaries,
		scales:    scales,
		logger:    logger.With().Str("component", "summary_service").Logger(),
		now:       time.Now,
	}
}

func (s *summaryService) RecomputeSummaries(ctx context.Context, examID uint) ([]dto.ExamSummaryResponse, error) {
	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}

	subjects, err := s.exams.ListSubjects(ctx, examID)
	if err != nil {
		return nil, err
	}

	maxBySubject := make(map[uint]float64, len(subjects))
	for _, subject := range subjects {
		maxBySubject[subject.ID] = subject.MaxMarks
	}

	// One query for the whole exam; grouping happens in memory rather than
	// per-student round trips.
	results, err := s.results.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	scale := s.scales.Resolve(exam.GradeScale)
	rollups := buildRollups(results, maxBySubject)
	ranked := rankRollups(rollups)

	summaries := make([]models.ExamSummary, 0, len(ranked))
	for rank, rollup := range ranked {
		percentage := round2(rollup.totalMarks / rollup.totalMax * 100)
		average, _ := stats.Mean(rollup.marks)

		summaries = append(summaries, models.ExamSummary{
			ExamID:        examID,
			StudentID:     rollup.studentID,
			SubjectCount:  len(rollup.marks),
			TotalMarks:    rollup.totalMarks,
			TotalMaxMarks: rollup.totalMax,
			Percentage:    percentage,
			Average:       round2(average),
			OverallGrade:  scale.Grade(percentage),
			ClassRank:     rank + 1,
			ClassSize:     len(ranked),
		})
	}

	if err := s.summaries.ReplaceForExam(ctx, examID, summaries); err != nil {
		return nil, err
	}

	observability.SummaryRecomputes().Inc()
	s.logger.Info().
		Uint("exam_id", examID).
		Int("students", len(summaries)).
		Msg("exam summaries recomputed")

	return dto.NewExamSummaryResponseSlice(summaries), nil
}

type studentRollup struct {
	studentID  uint
	totalMarks float64
	totalMax   float64
	marks      []float64
}

func buildRollups(results []models.ExamResult, maxBySubject map[uint]float64) map[uint]*studentRollup {
	rollups := make(map[uint]*studentRollup)
	for _, result := range results {
		rollup, ok := rollups[result.StudentID]
		if !ok {
			rollup = &studentRollup{studentID: result.StudentID}
			rollups[result.StudentID] = rollup
		}
		rollup.totalMarks += result.Marks
		rollup.totalMax += maxBySubject[result.ExamSubjectID]
		rollup.marks = append(rollup.marks, result.Marks)
	}
	return rollups
}

// rankRollups orders students by total marks descending. Ties break on
// student ID ascending so repeated runs always assign identical ranks.
func rankRollups(rollups map[uint]*studentRollup) []*studentRollup {
	ranked := make([]*studentRollup, 0, len(rollups))
	for _, rollup := range rollups {
		ranked = append(ranked, rollup)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].totalMarks != ranked[j].totalMarks {
			return ranked[i].totalMarks > ranked[j].totalMarks
		}
		return ranked[i].studentID < ranked[j].studentID
	})

	return ranked
}

func round2(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return math.Round(value*100) / 100
}
