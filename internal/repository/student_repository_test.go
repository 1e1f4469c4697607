package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var snapshotCols = []string{
	"id", "name", "register_number", "year", "semester", "faculty_id",
	"attendance", "cgpa", "arrear_count", "fees_paid", "disciplinary_issues",
	"risk_score", "dropout_prediction", "risk_level", "prediction_date",
}

func TestStudentRepositorySnapshot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	predictedAt := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(snapshotCols).
		AddRow(int64(7), "Asha Verma", "CS2023-041", 3, 5, nil,
			71.5, 6.2, int64(2), false, int64(0),
			0.63, int64(0), "MEDIUM", predictedAt)
	mock.ExpectQuery("LEFT JOIN LATERAL").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	snapshot, err := repo.Snapshot(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Asha Verma", snapshot.Name)
	require.NotNil(t, snapshot.Attendance)
	assert.Equal(t, 71.5, *snapshot.Attendance)
	require.NotNil(t, snapshot.RiskLevel)
	assert.Equal(t, "MEDIUM", *snapshot.RiskLevel)
	require.NotNil(t, snapshot.PredictionDate)
	assert.Equal(t, predictedAt, *snapshot.PredictionDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySnapshotMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("LEFT JOIN LATERAL").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Snapshot(context.Background(), 99)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListFull(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows(snapshotCols).
		AddRow(int64(2), "Beena", "CS2023-002", 2, 3, nil,
			nil, nil, nil, nil, nil, nil, nil, nil, nil).
		AddRow(int64(1), "Arun", "CS2023-001", 1, 1, nil,
			90.0, 8.1, int64(0), true, int64(0), 0.12, int64(0), "LOW", time.Now())
	mock.ExpectQuery("ORDER BY s.id DESC").WillReturnRows(rows)

	students, err := repo.ListFull(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Beena", students[0].Name)
	assert.Nil(t, students[0].Attendance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO students").
		WithArgs("Asha Verma", "CS2023-041", 3, 5, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec("INSERT INTO academic_records").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	student := models.Student{Name: "Asha Verma", RegisterNumber: "CS2023-041", Year: 3, Semester: 5}
	err := repo.Create(context.Background(), &student)
	require.NoError(t, err)
	assert.Equal(t, int64(42), student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateAcademicNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE academic_records").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateAcademic(context.Background(), 5, models.AcademicUpdate{})
	assert.ErrorIs(t, err, ErrNoRowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM academic_records").WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM predictions").WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM prediction_history").WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM students").WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByRegisterNumber(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "register_number", "year", "semester", "faculty_id"}).
		AddRow(int64(7), "Asha Verma", "CS2023-041", 3, 5, nil)
	mock.ExpectQuery("LOWER\\(register_number\\)").
		WithArgs("cs2023-041").
		WillReturnRows(rows)

	student, err := repo.FindByRegisterNumber(context.Background(), "cs2023-041")
	require.NoError(t, err)
	assert.Equal(t, int64(7), student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
