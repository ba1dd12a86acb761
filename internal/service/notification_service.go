package service

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prop-engine/internal/models"
)

// NotificationService delivers lifecycle notices to an outbound webhook.
// Delivery is fire-and-forget: failures are logged and never block or roll
// back the state transition that triggered them.
type NotificationService struct {
	webhookURL string
	enabled    bool
	httpClient *http.Client
}

// NewNotificationService creates a new NotificationService. An empty webhook
// URL disables delivery.
func NewNotificationService(webhookURL string) *NotificationService {
	return &NotificationService{
		webhookURL: webhookURL,
		enabled:    webhookURL != "",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type notificationPayload struct {
	ID            string  `json:"id"`
	Event         string  `json:"event"`
	UserID        uint    `json:"user_id"`
	AccountID     uint    `json:"account_id"`
	AccountNumber string  `json:"account_number"`
	ChallengeID   uint    `json:"challenge_id"`
	Reason        string  `json:"reason,omitempty"`
	Equity        float64 `json:"equity"`
	SentAt        string  `json:"sent_at"`
}

// SendFailureNotice notifies that an account has failed
func (s *NotificationService) SendFailureNotice(account *models.ChallengeAccount, reason string) {
	s.send(notificationPayload{
		ID:            uuid.New().String(),
		Event:         "account.failed",
		UserID:        account.UserID,
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		ChallengeID:   account.ChallengeID,
		Reason:        reason,
		Equity:        account.CurrentEquity,
		SentAt:        time.Now().UTC().Format(time.RFC3339),
	})
}

// SendCompletionNotice notifies that an account has passed all phases
func (s *NotificationService) SendCompletionNotice(account *models.ChallengeAccount) {
	s.send(notificationPayload{
		ID:            uuid.New().String(),
		Event:         "account.passed",
		UserID:        account.UserID,
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		ChallengeID:   account.ChallengeID,
		Equity:        account.CurrentEquity,
		SentAt:        time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *NotificationService) send(payload notificationPayload) {
	if !s.enabled {
		return
	}

	go func() {
		body, err := json.Marshal(payload)
		if err != nil {
			log.Printf("[Notify] Failed to encode %s payload: %v", payload.Event, err)
			return
		}

		resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("[Notify] Failed to deliver %s for account %d: %v", payload.Event, payload.AccountID, err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			log.Printf("[Notify] Webhook returned %d for %s (account %d)", resp.StatusCode, payload.Event, payload.AccountID)
		}
	}()
}
