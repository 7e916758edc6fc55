package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"savemyfoods-backend/internal/application/emails"
	"savemyfoods-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultWindowHours = 48

var (
	ErrNotificationNotFound = errors.New("Notification not found")
	ErrUnavailable          = errors.New("Notifications are unavailable")
)

// Service stores in-app notifications and, when Mailer is set, emails the seller a copy.
type Service struct {
	DB          *gorm.DB
	Mailer      emails.Sender
	WindowHours int
	Now         func() time.Time
}

// SweepResult reports what one expiry sweep did.
type SweepResult struct {
	Checked int       `json:"checked"`
	Created int       `json:"created"`
	Cutoff  time.Time `json:"cutoff"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// NotifyPurchase tells the seller that units of their listing were bought.
func (s *Service) NotifyPurchase(ctx context.Context, listing *domain.Listing, purchase *domain.Purchase) error {
	if s.DB == nil {
		return ErrUnavailable
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"listing_id":  listing.ID,
		"title":       listing.Title,
		"buyer_id":    purchase.BuyerID,
		"quantity":    purchase.Quantity,
		"remaining":   listing.Quantity,
		"sold_out":    !listing.Active(),
		"purchase_id": purchase.ID,
	})
	id := listing.ID
	if err := s.DB.WithContext(ctx).Create(&domain.Notification{
		UserID:    listing.SellerID,
		Type:      domain.NotificationTypePurchase,
		ListingID: &id,
		Payload:   datatypes.JSON(payload),
		CreatedAt: s.now(),
	}).Error; err != nil {
		return err
	}
	if s.Mailer != nil && listing.SellerEmail != "" {
		if err := s.Mailer.SendPurchaseNotice(ctx, listing.SellerEmail, emails.PurchaseNotice{
			ListingTitle: listing.Title,
			Quantity:     purchase.Quantity,
			Remaining:    listing.Quantity,
		}); err != nil {
			log.Warn().Err(err).Str("listing_id", listing.ID.String()).Msg("notifications: purchase email failed")
		}
	}
	return nil
}

// ListForUser returns the user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	if s.DB == nil {
		return nil, ErrUnavailable
	}
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	out := make([]domain.Notification, 0)
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead sets the read flag on one of the user's notifications.
func (s *Service) MarkRead(ctx context.Context, userID string, id uuid.UUID, read bool) (*domain.Notification, error) {
	if s.DB == nil {
		return nil, ErrUnavailable
	}
	var n domain.Notification
	err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}

	var readAt *time.Time
	if read {
		t := s.now()
		readAt = &t
	}
	if err := s.DB.WithContext(ctx).Model(&n).Updates(map[string]interface{}{
		"read":    read,
		"read_at": readAt,
	}).Error; err != nil {
		return nil, err
	}
	n.Read = read
	n.ReadAt = readAt
	return &n, nil
}

// SweepExpiring creates one expiry_alert per listing that still has stock and expires between
// today and now+window. Listings already alerted are skipped.
func (s *Service) SweepExpiring(ctx context.Context) (*SweepResult, error) {
	if s.DB == nil {
		return nil, ErrUnavailable
	}
	window := s.WindowHours
	if window <= 0 {
		window = DefaultWindowHours
	}
	now := s.now()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	cutoff := now.Add(time.Duration(window) * time.Hour)

	var due []domain.Listing
	err := s.DB.WithContext(ctx).
		Where("expires_on IS NOT NULL AND expires_on >= ? AND expires_on <= ?", datatypes.Date(today), datatypes.Date(cutoff)).
		Where("quantity > 0 AND status = ?", domain.ListingStatusActive).
		Where("NOT EXISTS (SELECT 1 FROM notifications n WHERE n.listing_id = listings.id AND n.type = ?)", domain.NotificationTypeExpiryAlert).
		Order("expires_on ASC").
		Find(&due).Error
	if err != nil {
		return nil, err
	}

	res := &SweepResult{Checked: len(due), Cutoff: cutoff}
	for i := range due {
		l := due[i]
		payload, _ := json.Marshal(map[string]interface{}{
			"listing_id": l.ID,
			"title":      l.Title,
			"expires_on": l.ExpiresOn,
			"quantity":   l.Quantity,
		})
		id := l.ID
		if err := s.DB.WithContext(ctx).Create(&domain.Notification{
			UserID:    l.SellerID,
			Type:      domain.NotificationTypeExpiryAlert,
			ListingID: &id,
			Payload:   datatypes.JSON(payload),
			CreatedAt: now,
		}).Error; err != nil {
			log.Error().Err(err).Str("listing_id", l.ID.String()).Msg("notifications: expiry alert insert failed")
			continue
		}
		res.Created++
		if s.Mailer != nil && l.SellerEmail != "" && l.ExpiresOn != nil {
			if err := s.Mailer.SendExpiryAlert(ctx, l.SellerEmail, emails.ExpiryAlert{
				ListingTitle: l.Title,
				ExpiresOn:    time.Time(*l.ExpiresOn),
				Quantity:     l.Quantity,
			}); err != nil {
				log.Warn().Err(err).Str("listing_id", l.ID.String()).Msg("notifications: expiry email failed")
			}
		}
	}
	log.Info().Int("checked", res.Checked).Int("created", res.Created).Time("cutoff", cutoff).Msg("notifications: expiry sweep done")
	return res, nil
}
