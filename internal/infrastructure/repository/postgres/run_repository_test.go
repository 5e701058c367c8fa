package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*RunRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	repo := NewRunRepository(db)
	repo.now = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }
	return repo, mock, func() { _ = db.Close() }
}

func archivedRun() domain.RunResult {
	start := time.Date(2026, 4, 1, 11, 0, 0, 0, time.UTC)
	return domain.RunResult{
		RunID:      "run-7",
		InputDir:   "./papers",
		Rubric:     domain.Rubric{Title: "quiz", MaxScore: 10},
		State:      domain.RunDone,
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		Records: []domain.ResultRecord{
			{File: "a.jpg", Score: 9, Answer: "answer", Status: domain.RecordGraded},
			{File: "b.jpg", Reason: domain.ReasonOCREmpty, Status: domain.RecordOCRFailed},
		},
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(schemaLockID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS grading_runs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveRunWritesHeaderAndRecords(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()
	run := archivedRun()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO grading_runs").
		WithArgs("run-7", "./papers", "quiz", 10, "done", 2, 1, 1, 9.0,
			run.StartedAt, run.FinishedAt, time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO grading_results").
		WithArgs("run-7", 0, "a.jpg", 9, "answer", sql.NullString{}, "graded").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO grading_results").
		WithArgs("run-7", 1, "b.jpg", 0, "", sql.NullString{String: domain.ReasonOCREmpty, Valid: true}, "ocr_failed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SaveRun(context.Background(), run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveRunRollsBackOnRecordFailure(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO grading_runs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO grading_results").WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.SaveRun(context.Background(), archivedRun())
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveRunRequiresRunID(t *testing.T) {
	repo, _, done := newRepoWithMock(t)
	defer done()

	err := repo.SaveRun(context.Background(), domain.RunResult{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestScoreHistory(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"file", "score", "answer", "reason", "status"}).
		AddRow("a.jpg", 9, "answer", nil, "graded").
		AddRow("a.jpg", 0, "", "OCR failure", "ocr_failed")
	mock.ExpectQuery("SELECT res.file, res.score").WithArgs("a.jpg", 10).WillReturnRows(rows)

	history, err := repo.ScoreHistory(context.Background(), "a.jpg", 0)
	if err != nil {
		t.Fatalf("ScoreHistory() error = %v", err)
	}
	if len(history) != 2 || history[0].Score != 9 || history[1].Reason != domain.ReasonOCREmpty {
		t.Fatalf("unexpected history %+v", history)
	}
	if history[1].Status != domain.RecordOCRFailed {
		t.Fatalf("unexpected status %s", history[1].Status)
	}
}
