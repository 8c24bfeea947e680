package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"partpay/financing-portal/financing-portal-backend/internal/financing"
	"partpay/financing-portal/financing-portal-backend/internal/notifications/websocket"
)

// Human-readable titles keyed by financing event type.
var eventTitles = map[string]string{
	financing.EventContractCreated:   "Financing contract created",
	financing.EventPaymentRecorded:   "Installment payment recorded",
	financing.EventContractCompleted: "Financing contract fully repaid",
	financing.EventDeliveryConfirmed: "Equipment delivery confirmed",
	financing.EventEquipmentFunded:   "Equipment funded",
	financing.EventRepaymentTracked:  "Repayment recorded on credit history",
}

// Service fans financing events out to persisted in-app notifications
// and live WebSocket subscribers. It implements financing.EventSink.
type Service struct {
	db        *gorm.DB
	wsManager *websocket.Manager
	logger    *zap.Logger
}

// NewService creates the notification service and migrates its tables.
func NewService(db *gorm.DB, wsManager *websocket.Manager, logger *zap.Logger) (*Service, error) {
	if err := db.AutoMigrate(&Notification{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Service{
		db:        db,
		wsManager: wsManager,
		logger:    logger,
	}, nil
}

// Publish records the event for its borrower and pushes it to every
// live subscriber of the contract and equipment topics. Delivery is
// best-effort; failures are logged, never surfaced to the caller.
func (s *Service) Publish(event financing.Event) {
	title, ok := eventTitles[event.Type]
	if !ok {
		title = event.Type
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode event payload",
			zap.String("type", event.Type), zap.Error(err))
		return
	}

	if event.BorrowerID != uuid.Nil {
		notification := &Notification{
			ID:          uuid.New(),
			RecipientID: event.BorrowerID,
			Topic:       event.Type,
			Title:       title,
			Payload:     payload,
			CreatedAt:   time.Now(),
		}
		if err := s.db.Create(notification).Error; err != nil {
			s.logger.Error("failed to persist notification",
				zap.String("type", event.Type), zap.Error(err))
		}
	}

	message := websocket.Message{
		Type:      websocket.MessageTypeEvent,
		Data:      eventData(event, title),
		Timestamp: time.Now(),
	}

	delivered := 0
	if event.ContractID != uuid.Nil {
		delivered += s.wsManager.SendToTopic("contract:"+event.ContractID.String(), message)
	}
	if event.EquipmentID != uuid.Nil {
		delivered += s.wsManager.SendToTopic("equipment:"+event.EquipmentID.String(), message)
	}

	s.logger.Debug("event published",
		zap.String("type", event.Type),
		zap.Int("live_deliveries", delivered))
}

func eventData(event financing.Event, title string) map[string]interface{} {
	data := map[string]interface{}{
		"type":  event.Type,
		"title": title,
		"at":    event.At,
	}
	if event.ContractID != uuid.Nil {
		data["contract_id"] = event.ContractID.String()
	}
	if event.EquipmentID != uuid.Nil {
		data["equipment_id"] = event.EquipmentID.String()
	}
	if event.BorrowerID != uuid.Nil {
		data["borrower_id"] = event.BorrowerID.String()
	}
	if event.Amount > 0 {
		data["amount"] = event.Amount
	}
	return data
}

// ListNotifications returns a recipient's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]Notification, error) {
	var items []Notification

	query := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)

	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, nil
}

// MarkAsRead stamps a notification as read.
func (s *Service) MarkAsRead(ctx context.Context, notificationID uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND read_at IS NULL", notificationID).
		Update("read_at", time.Now())

	if result.Error != nil {
		return fmt.Errorf("failed to mark notification as read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

// UnreadCount returns how many notifications a recipient has not read.
func (s *Service) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// Close shuts down the live delivery hub.
func (s *Service) Close() error {
	if s.wsManager != nil {
		s.wsManager.Close()
	}
	return nil
}
