package repository

import (
	"errors"

	"proctorx_backend/internal/model"
	"proctorx_backend/internal/util"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const mysqlDuplicateEntry = 1062

// IsDuplicateKey reports whether err is a unique-index collision, used to
// retry access code allocation.
func IsDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

type TestRepository struct {
	db *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{db: db}
}

func (r *TestRepository) Create(test *model.Test) error {
	return r.db.Create(test).Error
}

func (r *TestRepository) FindByID(id uint) (*model.Test, error) {
	var test model.Test
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("test_questions.sort_order ASC, test_questions.id ASC")
	}).First(&test, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &test, nil
}

// FindByAccessCode looks up a test by its normalized 8-char code.
func (r *TestRepository) FindByAccessCode(code string) (*model.Test, error) {
	var test model.Test
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("test_questions.sort_order ASC, test_questions.id ASC")
	}).Where("access_code = ?", code).First(&test).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *TestRepository) Save(test *model.Test) error {
	return r.db.Save(test).Error
}

// Updates applies a partial column update without touching questions.
func (r *TestRepository) Updates(id uint, fields map[string]interface{}) error {
	return r.db.Model(&model.Test{}).Where("id = ?", id).Updates(fields).Error
}

// ListByCreator returns the recruiter's own tests, newest first.
func (r *TestRepository) ListByCreator(creatorID uint, page, limit int, status model.TestStatus) ([]model.Test, int64, error) {
	var tests []model.Test
	var total int64

	query := r.db.Model(&model.Test{}).Where("creator_id = ?", creatorID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("test_questions.sort_order ASC, test_questions.id ASC")
	}).Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&tests).Error
	return tests, total, err
}

func (r *TestRepository) ReplaceQuestions(testID uint, questions []model.Question) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", testID).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].ID = 0
			questions[i].TestID = testID
		}
		if len(questions) == 0 {
			return nil
		}
		return tx.Create(&questions).Error
	})
}

func (r *TestRepository) CountSubmissions(testID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Submission{}).Where("test_id = ?", testID).Count(&count).Error
	return count, err
}

// RecordCompletedScore folds one finished percentage into the running
// aggregates in a single atomic UPDATE. Must run inside the submit
// transaction so the aggregate and the submission commit together.
func RecordCompletedScore(tx *gorm.DB, testID uint, percentage int) error {
	return tx.Model(&model.Test{}).Where("id = ?", testID).Updates(map[string]interface{}{
		"average_score": gorm.Expr(
			"(average_score * total_submissions + ?) / (total_submissions + 1)", percentage),
		"total_submissions": gorm.Expr("total_submissions + 1"),
	}).Error
}

func (r *TestRepository) Delete(id uint) error {
	return r.db.Delete(&model.Test{}, id).Error
}
