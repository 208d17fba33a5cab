package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// NotificationService delivers templated notifications through the registry's
// messaging webhook. When no webhook is configured the service logs the
// notification and succeeds, so workflows never depend on delivery.
type NotificationService struct {
	webhookURL string
	apiKey     string
	enabled    bool
	client     *http.Client
}

// NewNotificationService creates a new notification service
func NewNotificationService(webhookURL, apiKey string) *NotificationService {
	return &NotificationService{
		webhookURL: webhookURL,
		apiKey:     apiKey,
		enabled:    webhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// IsEnabled checks if notification delivery is enabled
func (s *NotificationService) IsEnabled() bool {
	return s.enabled
}

// Notify sends one templated notification to the recipients.
func (s *NotificationService) Notify(ctx context.Context, templateKey string, recipients []string, templateContext map[string]interface{}) error {
	if !s.enabled {
		log.Printf("📨 [dry-run] %s -> %v: %v", templateKey, recipients, templateContext)
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"template":   templateKey,
		"recipients": recipients,
		"context":    templateContext,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}
