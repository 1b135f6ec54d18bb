package mediamodule

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func mockedDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return db, mock
}

func TestRecorder_RecordUpload(t *testing.T) {
	db, mock := mockedDB(t)
	recorder := NewRecorder(db)

	session := NewBatchSession(KindProduct, productProfile())
	task := fillSession(t, session, "a1")[0]
	task.HostedURL = "https://cdn.example.com/a1.webp"

	mock.ExpectQuery(`INSERT INTO "upload_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	recorder.RecordUpload(session, task)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorder_MarkSessionOrphaned(t *testing.T) {
	db, mock := mockedDB(t)
	recorder := NewRecorder(db)

	mock.ExpectExec(`UPDATE "upload_records"`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	recorder.MarkSessionOrphaned("session-1")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorder_RecordBatchCreatesRow(t *testing.T) {
	db, mock := mockedDB(t)
	recorder := NewRecorder(db)

	session := NewBatchSession(KindBanner, bannerProfile())
	fillSession(t, session, "hero")

	mock.ExpectQuery(`SELECT \* FROM "batch_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "batch_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	recorder.RecordBatch(session, StateCompleted, "")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorder_OrphanedUploads(t *testing.T) {
	db, mock := mockedDB(t)
	recorder := NewRecorder(db)

	rows := sqlmock.NewRows([]string{"id", "session_id", "task_id", "file_name", "hosted_url", "size", "orphaned"}).
		AddRow(1, "s1", "t1", "a.webp", "https://cdn/a.webp", 1024, true).
		AddRow(2, "s1", "t2", "b.webp", "https://cdn/b.webp", 2048, true)
	mock.ExpectQuery(`SELECT \* FROM "upload_records"`).WillReturnRows(rows)

	records, err := recorder.OrphanedUploads(10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Orphaned)
	assert.Equal(t, "t2", records[1].TaskID)
}

func TestRecorder_NilDatabaseIsSafe(t *testing.T) {
	recorder := NewRecorder(nil)

	session := NewBatchSession(KindProduct, productProfile())
	task := fillSession(t, session, "a1")[0]

	// Audit is best effort; a missing database never panics the pipeline
	recorder.RecordUpload(session, task)
	recorder.MarkSessionOrphaned(session.ID)
	recorder.RecordBatch(session, StateCompleted, "")

	records, err := recorder.OrphanedUploads(10)
	assert.NoError(t, err)
	assert.Nil(t, records)
}
