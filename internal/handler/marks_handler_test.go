package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/scholaris-io/results-api/internal/config"
	"github.com/scholaris-io/results-api/internal/dto"
	"github.com/scholaris-io/results-api/internal/grading"
	"github.com/scholaris-io/results-api/internal/handler"
	"github.com/scholaris-io/results-api/internal/models"
	"github.com/scholaris-io/results-api/internal/repository"
	"github.com/scholaris-io/results-api/internal/router"
	"github.com/scholaris-io/results-api/internal/service"
)

func setupResultsApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.Teacher{},
		&models.Class{},
		&models.Subject{},
		&models.Exam{},
		&models.ExamSubject{},
		&models.ExamResult{},
		&models.ExamSummary{},
		&models.ReportCard{},
		&models.ReportCardSubject{},
		&models.ReportWorkflow{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)
	scales := grading.NewRegistry()

	examRepo := repository.NewExamRepository(db)
	resultRepo := repository.NewResultRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	summaryRepo := repository.NewSummaryRepository(db)
	reportCardRepo := repository.NewReportCardRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)

	workflowService := service.NewWorkflowService(workflowRepo, examRepo, logger)
	marksService := service.NewMarksService(examRepo, resultRepo, rosterRepo, workflowService, scales, validate, logger)
	summaryService := service.NewSummaryService(examRepo, resultRepo, summaryRepo, scales, logger)
	reportCardService := service.NewReportCardService(examRepo, resultRepo, rosterRepo, reportCardRepo, workflowService, scales, validate, nil, 0, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		MarksHandler:      handler.NewMarksHandler(marksService, logger),
		SummaryHandler:    handler.NewSummaryHandler(summaryService, logger),
		ReportCardHandler: handler.NewReportCardHandler(reportCardService, logger),
		WorkflowHandler:   handler.NewWorkflowHandler(workflowService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			if id := c.Get("X-Test-User"); id != "" {
				parsed, err := strconv.ParseUint(id, 10, 64)
				if err == nil {
					c.Locals("user_id", uint(parsed))
				}
			}
			if role := c.Get("X-Test-Role"); role != "" {
				c.Locals("user_role", role)
			}
			return c.Next()
		},
	})

	return app, db
}

func seedExamFixture(t *testing.T, db *gorm.DB) {
	t.Helper()

	require.NoError(t, db.Create(&models.Exam{ID: 1, Name: "Midterm", Grade: 7, AcademicYear: "2026", Term: 1, Type: "MIDTERM", GradeScale: "standard", Status: models.ExamStatusOngoing}).Error)
	require.NoError(t, db.Create(&models.Class{ID: 2, Name: "7A", Grade: 7, SupervisorTeacherID: 8}).Error)
	require.NoError(t, db.Create(&[]models.Subject{
		{ID: 10, Name: "Mathematics", Code: "MATH"},
		{ID: 20, Name: "English", Code: "ENG"},
	}).Error)
	require.NoError(t, db.Create(&[]models.ExamSubject{
		{ExamID: 1, SubjectID: 10, TeacherID: 5, MaxMarks: 100},
		{ExamID: 1, SubjectID: 20, TeacherID: 6, MaxMarks: 100},
	}).Error)
	require.NoError(t, db.Create(&[]models.Student{
		{ID: 1, Name: "Amina", AdmissionNo: "S001", ClassID: 2},
		{ID: 2, Name: "Brian", AdmissionNo: "S002", ClassID: 2},
	}).Error)
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}, userID uint, role string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Test-User", strconv.FormatUint(uint64(userID), 10))
	req.Header.Set("X-Test-Role", role)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()

	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func TestMarksHandlerSubmitAndLock(t *testing.T) {
	app, db := setupResultsApp(t)
	seedExamFixture(t, db)

	body := dto.MarksSubmissionRequest{Marks: []dto.MarkEntry{
		{StudentID: 1, Marks: 80},
		{StudentID: 2, Marks: 40},
	}}

	resp := doJSON(t, app, http.MethodPost, "/api/v1/exams/1/classes/2/subjects/10/marks", body, 5, "teacher")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	require.True(t, payload.Success)

	var submission dto.MarksSubmissionResponse
	require.NoError(t, json.Unmarshal(payload.Data, &submission))
	require.Equal(t, 2, submission.ResultsSaved)
	require.True(t, submission.Locked)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/exams/1/subjects/10/lock", nil, 5, "teacher")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var lock dto.SubjectLockResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &lock))
	require.True(t, lock.Locked)
}

func TestMarksHandlerResubmitConflicts(t *testing.T) {
	app, db := setupResultsApp(t)
	seedExamFixture(t, db)

	body := dto.MarksSubmissionRequest{Marks: []dto.MarkEntry{{StudentID: 1, Marks: 80}}}

	resp := doJSON(t, app, http.MethodPost, "/api/v1/exams/1/classes/2/subjects/10/marks", body, 5, "teacher")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/v1/exams/1/classes/2/subjects/10/marks", body, 5, "teacher")
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	require.False(t, payload.Success)
	require.Equal(t, "conflict", payload.Code)
}

func TestMarksHandlerBatchValidation(t *testing.T) {
	app, db := setupResultsApp(t)
	seedExamFixture(t, db)

	body := dto.MarksSubmissionRequest{Marks: []dto.MarkEntry{
		{StudentID: 1, Marks: 150},
		{StudentID: 99, Marks: 50},
	}}

	resp := doJSON(t, app, http.MethodPost, "/api/v1/exams/1/classes/2/subjects/10/marks", body, 5, "teacher")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	require.Equal(t, "validation", payload.Code)

	var detail struct {
		Issues []dto.MarkEntryIssue `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(payload.Data, &detail))
	require.Len(t, detail.Issues, 2)

	var count int64
	require.NoError(t, db.Model(&models.ExamResult{}).Count(&count).Error)
	require.Equal(t, int64(0), count, "a rejected batch writes nothing")
}

func TestMarksHandlerWrongTeacherForbidden(t *testing.T) {
	app, db := setupResultsApp(t)
	seedExamFixture(t, db)

	body := dto.MarksSubmissionRequest{Marks: []dto.MarkEntry{{StudentID: 1, Marks: 80}}}

	resp := doJSON(t, app, http.MethodPost, "/api/v1/exams/1/classes/2/subjects/10/marks", body, 6, "teacher")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, "forbidden", decodeEnvelope(t, resp).Code)
}

func TestMarksHandlerUnknownExam(t *testing.T) {
	app, db := setupResultsApp(t)
	seedExamFixture(t, db)

	body := dto.MarksSubmissionRequest{Marks: []dto.MarkEntry{{StudentID: 1, Marks: 80}}}

	resp := doJSON(t, app, http.MethodPost, "/api/v1/exams/404/classes/2/subjects/10/marks", body, 5, "teacher")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", decodeEnvelope(t, resp).Code)
}
