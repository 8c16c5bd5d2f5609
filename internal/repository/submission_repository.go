package repository

import (
	"errors"

	"proctorx_backend/internal/model"
	"proctorx_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// DB exposes the underlying handle for multi-repository transactions.
func (r *SubmissionRepository) DB() *gorm.DB {
	return r.db
}

func (r *SubmissionRepository) Create(tx *gorm.DB, sub *model.Submission) error {
	return tx.Create(sub).Error
}

func (r *SubmissionRepository) FindByID(id uint) (*model.Submission, error) {
	var sub model.Submission
	err := r.db.
		Preload("Answers").
		Preload("Violations", func(db *gorm.DB) *gorm.DB {
			return db.Order("submission_violations.timestamp ASC")
		}).
		Preload("Test.Questions").
		Preload("Student").
		First(&sub, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByIDFull also loads the activity log, for the recruiter detail view.
func (r *SubmissionRepository) FindByIDFull(id uint) (*model.Submission, error) {
	var sub model.Submission
	err := r.db.
		Preload("Answers").
		Preload("Violations", func(db *gorm.DB) *gorm.DB {
			return db.Order("submission_violations.timestamp ASC")
		}).
		Preload("ActivityLog", func(db *gorm.DB) *gorm.DB {
			return db.Order("submission_activity_events.timestamp ASC")
		}).
		Preload("Test.Questions").
		Preload("Student").
		First(&sub, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindInProgressForUpdate takes a row lock on the student's open submission,
// serializing concurrent start requests for the same (test, student) pair.
func (r *SubmissionRepository) FindInProgressForUpdate(tx *gorm.DB, testID, studentID uint) (*model.Submission, error) {
	var sub model.Submission
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("test_id = ? AND student_id = ? AND status = ?", testID, studentID, model.SubmissionInProgress).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubmissionRepository) CountAttempts(tx *gorm.DB, testID, studentID uint) (int64, error) {
	var count int64
	err := tx.Model(&model.Submission{}).
		Where("test_id = ? AND student_id = ?", testID, studentID).
		Count(&count).Error
	return count, err
}

func (r *SubmissionRepository) Save(tx *gorm.DB, sub *model.Submission) error {
	return tx.Save(sub).Error
}

// Updates applies a partial column update outside of a full Save.
func (r *SubmissionRepository) Updates(id uint, fields map[string]interface{}) error {
	return r.db.Model(&model.Submission{}).Where("id = ?", id).Updates(fields).Error
}

// FinalizeSubmission writes the hand-in columns only if the attempt has not
// been submitted yet. Zero rows affected means another request won the race.
func (r *SubmissionRepository) FinalizeSubmission(tx *gorm.DB, id uint, fields map[string]interface{}) (int64, error) {
	res := tx.Model(&model.Submission{}).
		Where("id = ? AND submitted_at IS NULL", id).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *SubmissionRepository) SaveAnswer(answer *model.Answer) error {
	return r.db.Save(answer).Error
}

// AppendViolation inserts an immutable violation row and bumps the
// denormalized counter on the parent in one transaction.
func (r *SubmissionRepository) AppendViolation(v *model.Violation, newStatus model.SubmissionStatus) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(v).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{
			"violation_count": gorm.Expr("violation_count + 1"),
		}
		if newStatus != "" {
			updates["status"] = newStatus
		}
		return tx.Model(&model.Submission{}).
			Where("id = ?", v.SubmissionID).
			Updates(updates).Error
	})
}

func (r *SubmissionRepository) AppendActivity(events []model.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.Create(&events).Error
}

// ListByTest returns submissions for the recruiter dashboard, newest first.
func (r *SubmissionRepository) ListByTest(testID uint, page, limit int, status model.SubmissionStatus) ([]model.Submission, int64, error) {
	var subs []model.Submission
	var total int64

	query := r.db.Model(&model.Submission{}).Where("test_id = ?", testID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Student").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&subs).Error
	return subs, total, err
}

func (r *SubmissionRepository) ListByStudent(studentID uint, page, limit int) ([]model.Submission, int64, error) {
	var subs []model.Submission
	var total int64

	query := r.db.Model(&model.Submission{}).Where("student_id = ?", studentID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Test").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&subs).Error
	return subs, total, err
}

// ListFinalizedByTest loads every attempt that ended, with violations, for
// the analytics aggregator. A flagged submission still being worked on
// (flagged mid-exam, not yet handed in) is not finalized.
func (r *SubmissionRepository) ListFinalizedByTest(testID uint) ([]model.Submission, error) {
	var subs []model.Submission
	err := r.db.
		Where("test_id = ? AND (submitted_at IS NOT NULL OR status = ?)", testID, model.SubmissionDisqualified).
		Preload("Violations").
		Find(&subs).Error
	return subs, err
}

func (r *SubmissionRepository) CountByTest(testID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Submission{}).Where("test_id = ?", testID).Count(&count).Error
	return count, err
}
