package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/minglin/internal/models"
)

// AnalyticsService records deal interactions and keeps the aggregate
// view/click counters on the deal in step with them.
type AnalyticsService struct {
	db       *gorm.DB
	notifier *Notifier
}

// NewAnalyticsService constructs an AnalyticsService.
func NewAnalyticsService(db *gorm.DB, notifier *Notifier) *AnalyticsService {
	return &AnalyticsService{db: db, notifier: notifier}
}

// Record appends an interaction event. View and click are counted at most
// once per (deal, user) pair: the insert races against the partial unique
// index and the counter is bumped only when the row actually landed, with an
// in-database increment so concurrent requests cannot lose updates.
// Save and unsave events mirror explicit user actions and always append.
// The returned bool reports whether a new event was recorded.
func (s *AnalyticsService) Record(deal *models.Deal, userID *uuid.UUID, action, ip, userAgent string) (bool, error) {
	row := models.DealAnalytics{
		DealID:     deal.ID,
		UserID:     userID,
		ActionType: action,
		IPAddress:  ip,
		UserAgent:  userAgent,
	}

	switch action {
	case models.ActionView, models.ActionClick:
		res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected == 0 {
			// Already counted for this user.
			return false, nil
		}

		column := "views"
		if action == models.ActionClick {
			column = "clicks"
		}
		if err := s.db.Model(&models.Deal{}).Where("id = ?", deal.ID).
			UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error; err != nil {
			return false, err
		}

		if action == models.ActionClick && s.notifier != nil {
			s.notifier.DealClicked(deal)
		}
		return true, nil

	case models.ActionSave, models.ActionUnsave:
		if err := s.db.Create(&row).Error; err != nil {
			return false, err
		}
		return true, nil

	default:
		return false, fmt.Errorf("unknown action type %q", action)
	}
}
