package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"libr-backend/internal/core/domain"
)

// NotificationService posts queue events to a webhook. Delivery is
// best-effort: a dead webhook never blocks a return.
type NotificationService struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// NewNotificationService creates a new notification service
func NewNotificationService() *NotificationService {
	url := os.Getenv("NOTIFY_WEBHOOK_URL")
	return &NotificationService{
		webhookURL: url,
		enabled:    url != "",
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// IsEnabled checks if notification is enabled
func (s *NotificationService) IsEnabled() bool {
	return s.enabled
}

type copyReadyEvent struct {
	Event     string `json:"event"`
	RequestID uint   `json:"request_id"`
	CopyID    uint   `json:"copy_id"`
	UserID    uint   `json:"user_id"`
	Title     string `json:"title,omitempty"`
}

// NotifyCopyReady tells the next user in a copy's queue that the copy came
// back
func (s *NotificationService) NotifyCopyReady(ctx context.Context, next *domain.NextInQueue, title string) {
	if !s.enabled {
		return
	}

	event := copyReadyEvent{
		Event:     "copy_ready",
		RequestID: next.RequestID,
		CopyID:    next.CopyID,
		UserID:    next.UserID,
		Title:     title,
	}

	body, err := json.Marshal(event)
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("⚠️ Webhook notify failed: %v", err)
		return
	}
	defer resp.Body.Close()
}
