package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"proctorx_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// sqlRecorder 收集 dry-run 会话生成的SQL
type sqlRecorder struct {
	statements []string
}

func (r *sqlRecorder) LogMode(gormlogger.LogLevel) gormlogger.Interface { return r }
func (r *sqlRecorder) Info(context.Context, string, ...interface{})    {}
func (r *sqlRecorder) Warn(context.Context, string, ...interface{})    {}
func (r *sqlRecorder) Error(context.Context, string, ...interface{})   {}

func (r *sqlRecorder) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	stmt, _ := fc()
	r.statements = append(r.statements, stmt)
}

// dryRunDB 不连库，只走SQL构建，用来断言生成的语句
func dryRunDB(t *testing.T, rec *sqlRecorder) *gorm.DB {
	t.Helper()

	sqlDB, err := sql.Open("mysql", "proctorx:proctorx@tcp(127.0.0.1:3306)/proctorx?parseTime=true")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true, Logger: rec})
	require.NoError(t, err)
	return db
}

func TestFinalizeSubmissionGuardsAgainstDoubleSubmit(t *testing.T) {
	rec := &sqlRecorder{}
	db := dryRunDB(t, rec)
	repo := NewSubmissionRepository(db)

	now := time.Now()
	rows, err := repo.FinalizeSubmission(db, 7, map[string]interface{}{
		"status":       model.SubmissionCompleted,
		"submitted_at": &now,
	})
	require.NoError(t, err)
	assert.Zero(t, rows)

	require.NotEmpty(t, rec.statements)
	stmt := rec.statements[len(rec.statements)-1]
	// 两个并发交卷只有第一个能命中这一行
	assert.Contains(t, stmt, "submitted_at IS NULL")
	assert.Contains(t, stmt, "UPDATE `submissions`")
}
