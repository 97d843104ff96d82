package repositories

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/WilliamAGH/searchai/domain"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		DriverName:           "postgres",
		Conn:                 db,
		PreferSimpleProtocol: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestNewArchiveRepository_Default(t *testing.T) {
	repo := NewArchiveRepository(nil, 0)
	assert.Equal(t, 100, repo.batchSize)
}

func TestSaveResults_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewArchiveRepository(db, 100)

	results := []domain.ScrapeResult{
		{Link: "http://example.com", Status: domain.StatusSuccess, Index: 0, TokenCount: 42, Content: "hello"},
		{Link: "http://bad.example", Status: domain.StatusFailed, Index: 1, Error: "timeout"},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "archived_results"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectCommit()

	err := repo.SaveResults("ctx-1", results)
	assert.NoError(t, err)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestSaveResults_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewArchiveRepository(db, 100)

	err := repo.SaveResults("ctx-1", nil)
	assert.NoError(t, err)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestSaveResults_Error(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewArchiveRepository(db, 100)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "archived_results"`).
		WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	err := repo.SaveResults("ctx-1", []domain.ScrapeResult{
		{Link: "http://example.com", Status: domain.StatusSuccess},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to archive")
}
