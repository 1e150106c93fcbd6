package services

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/example/minglin/internal/models"
)

// fanoutWorkers bounds how many recipients are processed in parallel so a
// large audience cannot exhaust connections to the database or the gateway.
const fanoutWorkers = 8

// Notifier computes notification audiences and delivers in-app records plus
// best-effort SMS. Delivery is at-least-once per qualifying recipient; a
// failure for one recipient never aborts the rest.
type Notifier struct {
	db  *gorm.DB
	sms *SMSService
}

// NewNotifier constructs a Notifier.
func NewNotifier(db *gorm.DB, sms *SMSService) *Notifier {
	return &Notifier{db: db, sms: sms}
}

// DealCreated notifies every customer-role user about a new deal.
func (n *Notifier) DealCreated(deal *models.Deal, businessName string) {
	var audience []models.User
	if err := n.db.Where("role = ?", models.RoleUser).Find(&audience).Error; err != nil {
		log.Printf("[Notify] failed to load audience for deal %s: %v", deal.ID, err)
		return
	}

	message := fmt.Sprintf("New deal from %s: %s", businessName, deal.Title)
	n.fanout(audience, models.NotificationNewDeal, "New Deal!", message, &deal.ID, nil)
}

// DealDeleted notifies everyone who saved the deal that it is gone.
func (n *Notifier) DealDeleted(deal *models.Deal) {
	var audience []models.User
	if err := n.db.
		Joins("JOIN saved_deals ON saved_deals.user_id = users.id").
		Where("saved_deals.deal_id = ?", deal.ID).
		Find(&audience).Error; err != nil {
		log.Printf("[Notify] failed to load savers of deal %s: %v", deal.ID, err)
		return
	}

	message := fmt.Sprintf("A deal you saved was removed: %s", deal.Title)
	n.fanout(audience, models.NotificationDealRemoved, "Deal Removed", message, nil, nil)
}

// BusinessCreated announces a new business to customer-role users.
func (n *Notifier) BusinessCreated(business *models.Business) {
	var audience []models.User
	if err := n.db.Where("role = ?", models.RoleUser).Find(&audience).Error; err != nil {
		log.Printf("[Notify] failed to load audience for business %s: %v", business.ID, err)
		return
	}

	message := fmt.Sprintf("%s just joined Minglin", business.Name)
	n.fanout(audience, models.NotificationNewBusiness, "New Business", message, nil,
		jsonData(map[string]string{"business_id": business.ID.String()}))
}

// RequestCreated announces a customer request to business-role users.
func (n *Notifier) RequestCreated(request *models.CustomerRequest) {
	var audience []models.User
	if err := n.db.Where("role = ?", models.RoleBusiness).Find(&audience).Error; err != nil {
		log.Printf("[Notify] failed to load audience for request %s: %v", request.ID, err)
		return
	}

	message := fmt.Sprintf("A customer is looking for: %s", request.Title)
	n.fanout(audience, models.NotificationSystem, "Customer Request", message, nil,
		jsonData(map[string]string{"request_id": request.ID.String()}))
}

// DealClicked tells the owning business that a customer clicked their deal.
func (n *Notifier) DealClicked(deal *models.Deal) {
	var business models.Business
	if err := n.db.First(&business, "id = ?", deal.BusinessID).Error; err != nil {
		log.Printf("[Notify] failed to load business for deal %s: %v", deal.ID, err)
		return
	}

	notification := models.Notification{
		UserID:        business.OwnerUserID,
		Title:         "Deal Clicked",
		Message:       fmt.Sprintf("Someone clicked your deal: %s", deal.Title),
		Type:          models.NotificationDealClicked,
		RelatedDealID: &deal.ID,
	}
	if err := n.db.Create(&notification).Error; err != nil {
		log.Printf("[Notify] failed to record click notification for deal %s: %v", deal.ID, err)
	}
}

// fanout delivers one notification per audience member through a bounded
// worker pool. Each worker swallows its own failures so siblings keep going.
func (n *Notifier) fanout(audience []models.User, notificationType, title, message string, relatedDealID *uuid.UUID, data datatypes.JSON) {
	var g errgroup.Group
	g.SetLimit(fanoutWorkers)

	for _, recipient := range audience {
		recipient := recipient
		g.Go(func() error {
			if !recipient.Preferences.Notifications.Wants(notificationType) {
				return nil
			}

			notification := models.Notification{
				UserID:        recipient.ID,
				Title:         title,
				Message:       message,
				Type:          notificationType,
				RelatedDealID: relatedDealID,
				Data:          data,
			}
			if err := n.db.Create(&notification).Error; err != nil {
				log.Printf("[Notify] failed to persist notification for user %s: %v", recipient.ID, err)
				return nil
			}

			if recipient.PushEnabled && n.sms != nil {
				if err := n.sms.Send(recipient.Phone, message); err != nil {
					log.Printf("[Notify] SMS to user %s failed: %v", recipient.ID, err)
				}
			}
			return nil
		})
	}

	_ = g.Wait()
}

func jsonData(values map[string]string) datatypes.JSON {
	raw, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
