package service

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/scholaris-io/results-api/internal/dto"
	"github.com/scholaris-io/results-api/internal/grading"
	"github.com/scholaris-io/results-api/internal/models"
)

type fakeReportCardRepo struct {
	replaceCalls int
	listCalls    int
	stored       []models.ReportCard
}

func (f *fakeReportCardRepo) ReplaceForClass(_ context.Context, examID, classID uint, cards []models.ReportCard) error {
	f.replaceCalls++
	f.stored = cards
	return nil
}

func (f *fakeReportCardRepo) ListForClass(_ context.Context, examID, classID uint) ([]models.ReportCard, error) {
	f.listCalls++
	return f.stored, nil
}

func (f *fakeReportCardRepo) ListForStudent(_ context.Context, examID, studentID uint) ([]models.ReportCard, error) {
	f.listCalls++
	var cards []models.ReportCard
	for _, card := range f.stored {
		if card.StudentID == studentID {
			cards = append(cards, card)
		}
	}
	return cards, nil
}

func reportCardFixture() (*fakeExamRepo, *fakeResultRepo, *fakeRosterRepo, *fakeReportCardRepo, *fakeWorkflowService) {
	mathName := models.Subject{ID: 10, Name: "Mathematics"}
	englishName := models.Subject{ID: 20, Name: "English"}
	exams := &fakeExamRepo{
		exam: models.Exam{ID: 1, GradeScale: "standard"},
		subjects: []models.ExamSubject{
			{ID: 11, ExamID: 1, SubjectID: 10, TeacherID: 5, MaxMarks: 100, MarksEntered: true, Subject: &mathName},
			{ID: 12, ExamID: 1, SubjectID: 20, TeacherID: 6, MaxMarks: 100, MarksEntered: true, Subject: &englishName},
		},
	}
	results := &fakeResultRepo{results: []models.ExamResult{
		{ExamSubjectID: 11, ExamID: 1, StudentID: 1, Marks: 80, Grade: "A"},
		{ExamSubjectID: 12, ExamID: 1, StudentID: 1, Marks: 60, Grade: "C"},
		{ExamSubjectID: 11, ExamID: 1, StudentID: 2, Marks: 40, Grade: "S"},
		{ExamSubjectID: 12, ExamID: 1, StudentID: 2, Marks: 100, Grade: "A"},
	}}
	roster := &fakeRosterRepo{
		class:    models.Class{ID: 2, Name: "7A", SupervisorTeacherID: 8},
		students: []models.Student{{ID: 1, ClassID: 2}, {ID: 2, ClassID: 2}},
	}
	cards := &fakeReportCardRepo{}
	workflow := &fakeWorkflowService{stage: models.StageClassReview}
	return exams, results, roster, cards, workflow
}

func newReportCardService(
	exams *fakeExamRepo,
	results *fakeResultRepo,
	roster *fakeRosterRepo,
	cards *fakeReportCardRepo,
	workflow *fakeWorkflowService,
	cache *redis.Client,
) ReportCardService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewReportCardService(exams, results, roster, cards, workflow, grading.NewRegistry(), validate, cache, time.Minute, testLogger())
}

func TestReportCardServiceGenerateBuildsRankedCards(t *testing.T) {
	exams, results, roster, cards, workflow := reportCardFixture()
	svc := newReportCardService(exams, results, roster, cards, workflow, nil)

	payload := dto.GenerateReportCardsRequest{Remarks: map[uint]string{
		1: "  <script>alert(1)</script>Consistent effort  ",
	}}

	response, err := svc.Generate(context.Background(), 1, 2, Actor{ID: 8, Role: RoleTeacher}, payload)
	require.NoError(t, err)
	require.Equal(t, 2, response.StudentsProcessed)
	require.Equal(t, string(models.StageClassReview), response.WorkflowStage)
	require.Equal(t, 1, cards.replaceCalls)
	require.Equal(t, 1, workflow.marksCompleted)

	require.Len(t, cards.stored, 2)

	// Both students total 140/200; the tie breaks on the lower student ID.
	first := cards.stored[0]
	require.Equal(t, uint(1), first.StudentID)
	require.Equal(t, 1, first.ClassRank)
	require.Equal(t, 2, first.ClassSize)
	require.Equal(t, 140.0, first.TotalMarks)
	require.Equal(t, 70.0, first.Percentage)
	require.Equal(t, "B", first.OverallGrade)
	require.Equal(t, "Consistent effort", first.Remarks, "markup must be stripped from remarks")

	second := cards.stored[1]
	require.Equal(t, uint(2), second.StudentID)
	require.Equal(t, 2, second.ClassRank)

	// Subject lines carry class-wide statistics.
	require.Len(t, first.Subjects, 2)
	maths := first.Subjects[0]
	require.Equal(t, "Mathematics", maths.SubjectName)
	require.Equal(t, 60.0, maths.ClassAverage)
	require.Equal(t, 60.0, maths.ClassMedian)
}

func TestReportCardServiceGenerateBlocksOnUnlockedSubjects(t *testing.T) {
	exams, results, roster, cards, workflow := reportCardFixture()
	exams.subjects[1].MarksEntered = false
	svc := newReportCardService(exams, results, roster, cards, workflow, nil)

	_, err := svc.Generate(context.Background(), 1, 2, Actor{ID: 8, Role: RoleTeacher}, dto.GenerateReportCardsRequest{})

	var incomplete *IncompleteSubjectsError
	require.ErrorAs(t, err, &incomplete)
	require.Equal(t, []string{"English"}, incomplete.Subjects)
	require.Equal(t, 0, cards.replaceCalls)
	require.Equal(t, 0, workflow.marksCompleted)
}

func TestReportCardServiceGenerateNoSubjectsConfigured(t *testing.T) {
	exams, results, roster, cards, workflow := reportCardFixture()
	exams.subjects = nil
	svc := newReportCardService(exams, results, roster, cards, workflow, nil)

	_, err := svc.Generate(context.Background(), 1, 2, Actor{ID: 8, Role: RoleTeacher}, dto.GenerateReportCardsRequest{})
	require.ErrorIs(t, err, ErrNoSubjectsConfigured)
}

func TestReportCardServiceGenerateRequiresSupervisor(t *testing.T) {
	exams, results, roster, cards, workflow := reportCardFixture()
	svc := newReportCardService(exams, results, roster, cards, workflow, nil)

	_, err := svc.Generate(context.Background(), 1, 2, Actor{ID: 5, Role: RoleTeacher}, dto.GenerateReportCardsRequest{})
	require.ErrorIs(t, err, ErrNotClassSupervisor)

	_, err = svc.Generate(context.Background(), 1, 2, Actor{ID: 99, Role: RoleAdmin}, dto.GenerateReportCardsRequest{})
	require.NoError(t, err, "admins may generate for any class")
}

func TestReportCardServiceGenerateSurvivesWorkflowFailure(t *testing.T) {
	exams, results, roster, cards, workflow := reportCardFixture()
	workflow.marksCompletedErr = errors.New("workflow store unavailable")
	svc := newReportCardService(exams, results, roster, cards, workflow, nil)

	// The cards have committed by the time the workflow advance runs; the
	// response must agree with the durable state instead of failing.
	response, err := svc.Generate(context.Background(), 1, 2, Actor{ID: 8, Role: RoleTeacher}, dto.GenerateReportCardsRequest{})
	require.NoError(t, err)
	require.Equal(t, 2, response.StudentsProcessed)
	require.Empty(t, response.WorkflowStage, "the stage is unknown until a retry advances it")
	require.Equal(t, 1, cards.replaceCalls)
	require.Len(t, cards.stored, 2)

	// A later run with a healthy workflow store reports the stage again.
	workflow.marksCompletedErr = nil
	response, err = svc.Generate(context.Background(), 1, 2, Actor{ID: 8, Role: RoleTeacher}, dto.GenerateReportCardsRequest{})
	require.NoError(t, err)
	require.Equal(t, string(models.StageClassReview), response.WorkflowStage)
}

func TestReportCardServiceGenerateIdempotentRanks(t *testing.T) {
	exams, results, roster, cards, workflow := reportCardFixture()
	svc := newReportCardService(exams, results, roster, cards, workflow, nil)

	_, err := svc.Generate(context.Background(), 1, 2, Actor{ID: 8, Role: RoleTeacher}, dto.GenerateReportCardsRequest{})
	require.NoError(t, err)
	firstRanks := rankByStudent(cards.stored)

	_, err = svc.Generate(context.Background(), 1, 2, Actor{ID: 8, Role: RoleTeacher}, dto.GenerateReportCardsRequest{})
	require.NoError(t, err)
	require.Equal(t, firstRanks, rankByStudent(cards.stored))
	require.Equal(t, 2, cards.replaceCalls)
}

func rankByStudent(cards []models.ReportCard) map[uint]int {
	ranks := make(map[uint]int, len(cards))
	for _, card := range cards {
		ranks[card.StudentID] = card.ClassRank
	}
	return ranks
}

func TestReportCardServiceListRoleFiltering(t *testing.T) {
	exams, results, roster, cards, workflow := reportCardFixture()
	svc := newReportCardService(exams, results, roster, cards, workflow, nil)

	_, err := svc.Generate(context.Background(), 1, 2, Actor{ID: 8, Role: RoleTeacher}, dto.GenerateReportCardsRequest{})
	require.NoError(t, err)

	// A student only ever sees their own card, whatever they ask for.
	responses, err := svc.List(context.Background(), dto.ReportCardQuery{ExamID: 1, StudentID: 2}, Actor{ID: 1, Role: RoleStudent})
	require.NoError(t, err)
	require.Len(t, responses, 1)
	require.Equal(t, uint(1), responses[0].StudentID)

	// A teacher must supervise the class they query.
	_, err = svc.List(context.Background(), dto.ReportCardQuery{ExamID: 1, ClassID: 2}, Actor{ID: 5, Role: RoleTeacher})
	require.ErrorIs(t, err, ErrReportAccessDenied)

	responses, err = svc.List(context.Background(), dto.ReportCardQuery{ExamID: 1, ClassID: 2}, Actor{ID: 8, Role: RoleTeacher})
	require.NoError(t, err)
	require.Len(t, responses, 2)

	// Unknown roles get nothing.
	_, err = svc.List(context.Background(), dto.ReportCardQuery{ExamID: 1, ClassID: 2}, Actor{ID: 1, Role: "guest"})
	require.ErrorIs(t, err, ErrReportAccessDenied)
}

func TestReportCardServiceListUsesCache(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	exams, results, roster, cards, workflow := reportCardFixture()
	svc := newReportCardService(exams, results, roster, cards, workflow, client)

	_, err = svc.Generate(context.Background(), 1, 2, Actor{ID: 8, Role: RoleTeacher}, dto.GenerateReportCardsRequest{})
	require.NoError(t, err)

	query := dto.ReportCardQuery{ExamID: 1, ClassID: 2}
	admin := Actor{ID: 99, Role: RoleAdmin}

	first, err := svc.List(context.Background(), query, admin)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, 1, cards.listCalls)

	second, err := svc.List(context.Background(), query, admin)
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Equal(t, first[0].StudentID, second[0].StudentID)
	require.Equal(t, first[0].ClassRank, second[0].ClassRank)
	require.Equal(t, 1, cards.listCalls, "second read must come from the cache")

	// Regeneration invalidates the cached set.
	_, err = svc.Generate(context.Background(), 1, 2, Actor{ID: 8, Role: RoleTeacher}, dto.GenerateReportCardsRequest{})
	require.NoError(t, err)

	_, err = svc.List(context.Background(), query, admin)
	require.NoError(t, err)
	require.Equal(t, 2, cards.listCalls)
}
