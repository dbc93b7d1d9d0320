package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/montanaflynn/stats"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/scholaris-io/results-api/internal/dto"
	"github.com/scholaris-io/results-api/internal/grading"
	"github.com/scholaris-io/results-api/internal/models"
	"github.com/scholaris-io/results-api/internal/observability"
	"github.com/scholaris-io/results-api/internal/repository"
)

// ReportCardService materializes the published report cards for one
// (exam, class) pair. Generation requires every subject of the exam to be
// locked and always replaces any prior generation for the pair.
type ReportCardService interface {
	Generate(ctx context.Context, examID, classID uint, actor Actor, payload dto.GenerateReportCardsRequest) (dto.GenerateReportCardsResponse, error)
	List(ctx context.Context, query dto.ReportCardQuery, actor Actor) ([]dto.ReportCardResponse, error)
}

type reportCardService struct {
	exams     repository.ExamRepository
	results   repository.ResultRepository
	roster    repository.RosterRepository
	cards     repository.ReportCardRepository
	workflow  WorkflowService
	scales    *grading.Registry
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
	locks     scopeLock
}

// NewReportCardService builds the report card generator.
func NewReportCardService(
	exams repository.ExamRepository,
	results repository.ResultRepository,
	roster repository.RosterRepository,
	cards repository.ReportCardRepository,
	workflow WorkflowService,
	scales *grading.Registry,
	validate *validator.Validate,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) ReportCardService {
	return &reportCardService{
		exams:     exams,
		results:   results,
		roster:    roster,
		cards:     cards,
		workflow:  workflow,
		scales:    scales,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger.With().Str("component", "report_card_service").Logger(),
		now:       time.Now,
	}
}

func (s *reportCardService) Generate(ctx context.Context, examID, classID uint, actor Actor, payload dto.GenerateReportCardsRequest) (dto.GenerateReportCardsResponse, error) {
	tracer := otel.Tracer("github.com/scholaris-io/results-api/internal/service")
	ctx, span := tracer.Start(ctx, "report_card.generate")
	span.SetAttributes(
		attribute.Int64("report_card.exam_id", int64(examID)),
		attribute.Int64("report_card.class_id", int64(classID)),
		attribute.Int64("report_card.actor_id", int64(actor.ID)),
	)
	defer span.End()

	started := s.now()
	response, err := s.generate(ctx, examID, classID, actor, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation_failed")
		observability.CardGenerations().WithLabelValues(generationOutcome(err)).Inc()
		return dto.GenerateReportCardsResponse{}, err
	}

	observability.CardGenerations().WithLabelValues("generated").Inc()
	observability.CardGenerationDuration().Observe(s.now().Sub(started).Seconds())
	return response, nil
}

func (s *reportCardService) generate(ctx context.Context, examID, classID uint, actor Actor, payload dto.GenerateReportCardsRequest) (dto.GenerateReportCardsResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GenerateReportCardsResponse{}, err
	}

	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GenerateReportCardsResponse{}, ErrExamNotFound
		}
		return dto.GenerateReportCardsResponse{}, err
	}

	class, err := s.roster.GetClass(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GenerateReportCardsResponse{}, ErrClassNotFound
		}
		return dto.GenerateReportCardsResponse{}, err
	}

	if !actor.IsAdmin() && (actor.Role != RoleTeacher || actor.ID != class.SupervisorTeacherID) {
		return dto.GenerateReportCardsResponse{}, ErrNotClassSupervisor
	}

	// Two admins pressing generate at once must not interleave the
	// delete/insert phases.
	unlock := s.locks.Lock(examID, classID)
	defer unlock()

	subjects, err := s.exams.ListSubjects(ctx, examID)
	if err != nil {
		return dto.GenerateReportCardsResponse{}, err
	}
	if len(subjects) == 0 {
		return dto.GenerateReportCardsResponse{}, ErrNoSubjectsConfigured
	}

	unlocked, err := s.exams.ListUnlockedSubjects(ctx, examID)
	if err != nil {
		return dto.GenerateReportCardsResponse{}, err
	}
	if len(unlocked) > 0 {
		incomplete := make([]string, 0, len(unlocked))
		for _, subject := range unlocked {
			incomplete = append(incomplete, subjectName(subject))
		}
		return dto.GenerateReportCardsResponse{}, &IncompleteSubjectsError{Subjects: incomplete}
	}

	students, err := s.roster.ListStudentsByClass(ctx, classID)
	if err != nil {
		return dto.GenerateReportCardsResponse{}, err
	}

	enrolled := make(map[uint]struct{}, len(students))
	for _, student := range students {
		enrolled[student.ID] = struct{}{}
	}

	results, err := s.results.ListByExam(ctx, examID)
	if err != nil {
		return dto.GenerateReportCardsResponse{}, err
	}

	cards := s.buildCards(exam, classID, subjects, results, enrolled, payload.Remarks, actor.ID)

	if err := s.cards.ReplaceForClass(ctx, examID, classID, cards); err != nil {
		return dto.GenerateReportCardsResponse{}, err
	}

	s.invalidateCache(ctx, examID, classID)

	s.logger.Info().
		Uint("exam_id", examID).
		Uint("class_id", classID).
		Uint("actor_id", actor.ID).
		Int("students", len(cards)).
		Msg("report cards generated")

	response := dto.GenerateReportCardsResponse{
		ExamID:            examID,
		ClassID:           classID,
		StudentsProcessed: len(cards),
	}

	// The cards are already durable; a workflow hiccup must not turn the
	// generation into a failure. The advance is idempotent, so the next
	// generation or lock event retries it.
	workflow, err := s.workflow.MarksCompleted(ctx, examID, classID, actor.ID)
	if err != nil {
		s.logger.Warn().Err(err).
			Uint("exam_id", examID).
			Uint("class_id", classID).
			Msg("workflow advance failed after generation")
		return response, nil
	}
	response.WorkflowStage = string(workflow.CurrentStage)

	return response, nil
}

// buildCards assembles the full card set in memory: per-subject class
// statistics first, then per-student aggregates, then ranks.
func (s *reportCardService) buildCards(
	exam models.Exam,
	classID uint,
	subjects []models.ExamSubject,
	results []models.ExamResult,
	enrolled map[uint]struct{},
	remarks map[uint]string,
	actorID uint,
) []models.ReportCard {
	subjectByID := make(map[uint]models.ExamSubject, len(subjects))
	for _, subject := range subjects {
		subjectByID[subject.ID] = subject
	}

	classMarks := make(map[uint][]float64, len(subjects))
	resultsByStudent := make(map[uint][]models.ExamResult)
	for _, result := range results {
		if _, ok := enrolled[result.StudentID]; !ok {
			continue
		}
		classMarks[result.ExamSubjectID] = append(classMarks[result.ExamSubjectID], result.Marks)
		resultsByStudent[result.StudentID] = append(resultsByStudent[result.StudentID], result)
	}

	type subjectStats struct {
		average float64
		median  float64
	}
	statsBySubject := make(map[uint]subjectStats, len(classMarks))
	for subjectID, marks := range classMarks {
		average, _ := stats.Mean(marks)
		median, _ := stats.Median(marks)
		statsBySubject[subjectID] = subjectStats{average: round2(average), median: round2(median)}
	}

	scale := s.scales.Resolve(exam.GradeScale)
	generatedAt := s.now()

	cards := make([]models.ReportCard, 0, len(resultsByStudent))
	for studentID, studentResults := range resultsByStudent {
		sort.Slice(studentResults, func(i, j int) bool {
			return subjectByID[studentResults[i].ExamSubjectID].SubjectID < subjectByID[studentResults[j].ExamSubjectID].SubjectID
		})

		var totalMarks, totalMax float64
		var marks []float64
		lines := make([]models.ReportCardSubject, 0, len(studentResults))
		for _, result := range studentResults {
			subject := subjectByID[result.ExamSubjectID]
			totalMarks += result.Marks
			totalMax += subject.MaxMarks
			marks = append(marks, result.Marks)

			lines = append(lines, models.ReportCardSubject{
				SubjectID:    subject.SubjectID,
				SubjectName:  subjectName(subject),
				Marks:        result.Marks,
				MaxMarks:     subject.MaxMarks,
				Grade:        result.Grade,
				ClassAverage: statsBySubject[result.ExamSubjectID].average,
				ClassMedian:  statsBySubject[result.ExamSubjectID].median,
			})
		}

		percentage := round2(totalMarks / totalMax * 100)
		average, _ := stats.Mean(marks)

		cards = append(cards, models.ReportCard{
			ExamID:        exam.ID,
			ClassID:       classID,
			StudentID:     studentID,
			SubjectCount:  len(lines),
			TotalMarks:    totalMarks,
			TotalMaxMarks: totalMax,
			Percentage:    percentage,
			Average:       round2(average),
			OverallGrade:  scale.Grade(percentage),
			Remarks:       s.sanitizeRemark(remarks[studentID]),
			GeneratedBy:   actorID,
			GeneratedAt:   generatedAt,
			Subjects:      lines,
		})
	}

	// Rank by percentage descending; ties break on student ID ascending so
	// regeneration is idempotent.
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Percentage != cards[j].Percentage {
			return cards[i].Percentage > cards[j].Percentage
		}
		return cards[i].StudentID < cards[j].StudentID
	})
	for i := range cards {
		cards[i].ClassRank = i + 1
		cards[i].ClassSize = len(cards)
	}

	return cards
}

func (s *reportCardService) List(ctx context.Context, query dto.ReportCardQuery, actor Actor) ([]dto.ReportCardResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	switch actor.Role {
	case RoleAdmin:
		// unrestricted
	case RoleTeacher:
		if query.ClassID == 0 {
			return nil, ErrReportAccessDenied
		}
		class, err := s.roster.GetClass(ctx, query.ClassID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrClassNotFound
			}
			return nil, err
		}
		if class.SupervisorTeacherID != actor.ID {
			return nil, ErrReportAccessDenied
		}
	case RoleStudent:
		query.ClassID = 0
		query.StudentID = actor.ID
	default:
		return nil, ErrReportAccessDenied
	}

	if query.StudentID != 0 {
		cards, err := s.cards.ListForStudent(ctx, query.ExamID, query.StudentID)
		if err != nil {
			return nil, err
		}
		return dto.NewReportCardResponseSlice(cards), nil
	}

	if query.ClassID == 0 {
		return nil, ErrReportAccessDenied
	}

	return s.listForClass(ctx, query.ExamID, query.ClassID)
}

func (s *reportCardService) listForClass(ctx context.Context, examID, classID uint) ([]dto.ReportCardResponse, error) {
	cacheKey := reportCardCacheKey(examID, classID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var responses []dto.ReportCardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &responses); unmarshalErr == nil {
				s.logger.Debug().Uint("exam_id", examID).Uint("class_id", classID).Msg("report card cache hit")
				return responses, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read report card cache")
		}
	}

	cards, err := s.cards.ListForClass(ctx, examID, classID)
	if err != nil {
		return nil, err
	}

	responses := dto.NewReportCardResponseSlice(cards)

	if s.cache != nil && len(responses) > 0 {
		if payload, err := json.Marshal(responses); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store report card cache")
			}
		}
	}

	return responses, nil
}

func (s *reportCardService) invalidateCache(ctx context.Context, examID, classID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, reportCardCacheKey(examID, classID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate report card cache")
	}
}

func (s *reportCardService) sanitizeRemark(remark string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(remark))
}

func reportCardCacheKey(examID, classID uint) string {
	return fmt.Sprintf("report-cards:exam:%d:class:%d", examID, classID)
}

func subjectName(subject models.ExamSubject) string {
	if subject.Subject != nil && subject.Subject.Name != "" {
		return subject.Subject.Name
	}
	return fmt.Sprintf("subject-%d", subject.SubjectID)
}

func generationOutcome(err error) string {
	var incomplete *IncompleteSubjectsError
	switch {
	case errors.As(err, &incomplete), errors.Is(err, ErrNoSubjectsConfigured):
		return "incomplete"
	case errors.Is(err, ErrNotClassSupervisor):
		return "forbidden"
	default:
		return "error"
	}
}
