package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scholaris-io/results-api/internal/models"
)

func TestExamRepositoryGetSubjectPreloadsSubject(t *testing.T) {
	db := setupTestDB(t)
	repo := NewExamRepository(db)

	subject := models.Subject{Name: "Mathematics", Code: "MATH"}
	require.NoError(t, db.Create(&subject).Error)
	require.NoError(t, db.Create(&models.ExamSubject{ExamID: 1, SubjectID: subject.ID, TeacherID: 4, MaxMarks: 100}).Error)

	found, err := repo.GetSubject(context.Background(), 1, subject.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Subject)
	require.Equal(t, "Mathematics", found.Subject.Name)
}

func TestExamRepositoryAllSubjectsLocked(t *testing.T) {
	db := setupTestDB(t)
	repo := NewExamRepository(db)

	locked, err := repo.AllSubjectsLocked(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, locked, "an exam without subjects is never complete")

	first := models.ExamSubject{ExamID: 1, SubjectID: 1, TeacherID: 4, MaxMarks: 100, MarksEntered: true}
	second := models.ExamSubject{ExamID: 1, SubjectID: 2, TeacherID: 5, MaxMarks: 50}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	locked, err = repo.AllSubjectsLocked(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, locked)

	require.NoError(t, db.Model(&second).Update("marks_entered", true).Error)

	locked, err = repo.AllSubjectsLocked(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, locked)
}

func TestExamRepositoryListUnlockedSubjects(t *testing.T) {
	db := setupTestDB(t)
	repo := NewExamRepository(db)

	require.NoError(t, db.Create(&[]models.ExamSubject{
		{ExamID: 1, SubjectID: 2, TeacherID: 4, MaxMarks: 100},
		{ExamID: 1, SubjectID: 1, TeacherID: 4, MaxMarks: 100, MarksEntered: true},
		{ExamID: 1, SubjectID: 3, TeacherID: 5, MaxMarks: 50},
	}).Error)

	unlocked, err := repo.ListUnlockedSubjects(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, unlocked, 2)
	require.Equal(t, uint(2), unlocked[0].SubjectID)
	require.Equal(t, uint(3), unlocked[1].SubjectID)
}
