package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dashkit/admin-dashboard/internal/domain"
	"github.com/dashkit/admin-dashboard/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OnboardingInput struct {
	Admin     *domain.User
	SiteName  string
	PageName  string
	ListTitle string
}

type OnboardingRepository interface {
	IsDone(ctx context.Context) (bool, error)
	Complete(ctx context.Context, in OnboardingInput) error
}

// onboardingRowID is the primary key of the single onboarding row.
const onboardingRowID = 1

type GormOnboardingRepository struct{ db *gorm.DB }

func NewOnboardingRepository(db *gorm.DB) OnboardingRepository {
	return &GormOnboardingRepository{db: db}
}

func (r *GormOnboardingRepository) IsDone(ctx context.Context) (bool, error) {
	var row domain.Onboarding
	err := r.db.WithContext(ctx).First(&row, onboardingRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		observability.RecordRepositoryOperation(ctx, "onboarding", "is_done", "success")
		return false, nil
	}
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "onboarding", "is_done", "error")
		return false, storeErr("sql", "onboarding status", err)
	}
	observability.RecordRepositoryOperation(ctx, "onboarding", "is_done", "success")
	return row.Done, nil
}

// Complete marks onboarding done, creates the admin, records the site and
// provisions its default to-do list in one transaction. Any failure rolls
// the whole set back.
//
// The onboarding row is a singleton: it is inserted if absent and then
// locked, so concurrent first runs queue on the same row and only the first
// to commit wins.
func (r *GormOnboardingRepository) Complete(ctx context.Context, in OnboardingInput) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := domain.Onboarding{ID: onboardingRowID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return storeErr("sql", "seed onboarding", err)
		}
		var row domain.Onboarding
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, onboardingRowID).Error; err != nil {
			return storeErr("sql", "lock onboarding", err)
		}
		if row.Done {
			return ErrOnboardingCompleted
		}

		now := time.Now().UTC()
		row.Done = true
		row.CompletedAt = &now
		if err := tx.Save(&row).Error; err != nil {
			return storeErr("sql", "mark onboarding", err)
		}
		if err := createUser(tx, in.Admin); err != nil {
			return err
		}
		if err := tx.Create(&domain.Site{Name: in.SiteName}).Error; err != nil {
			return storeErr("sql", "insert site", err)
		}
		_, err := ensureList(tx, in.PageName, in.ListTitle)
		return err
	})
	switch {
	case err == nil:
		observability.RecordRepositoryOperation(ctx, "onboarding", "complete", "success")
	case errors.Is(err, ErrOnboardingCompleted):
		observability.RecordRepositoryOperation(ctx, "onboarding", "complete", "conflict")
	default:
		observability.RecordRepositoryOperation(ctx, "onboarding", "complete", "error")
	}
	return err
}
