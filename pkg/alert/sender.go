// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-obvious/timestamp"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/build"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

var (
	_ types.Sender = (*WebhookSender)(nil)
	_ types.Sender = (*LogSender)(nil)
)

// NewSender returns a WebhookSender when a webhook is configured and a
// LogSender otherwise.
func NewSender(cfg *config.Alerts) types.Sender {
	if cfg.WebhookURL == "" {
		return &LogSender{}
	}
	return NewWebhookSender(cfg.WebhookURL, cfg.SendTimeout)
}

// webhookPayload is the JSON document posted to the message relay.
type webhookPayload struct {
	ID         string   `json:"id"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	SentAt     int64    `json:"sent_at"`
}

// WebhookSender posts each message to a relay that forwards it by mail or chat.
// Any non-2xx response is a delivery failure.
type WebhookSender struct {
	URL        string
	HTTPClient *http.Client
}

func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{
		URL:        url,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (s *WebhookSender) Send(ctx context.Context, msg *types.Message) error {
	payload := webhookPayload{
		ID:         uuid.NewString(),
		Recipients: msg.Recipients,
		Subject:    msg.Subject,
		Body:       msg.Body,
		SentAt:     timestamp.Milli(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode message: %w", types.ErrAlertDeliveryFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", types.ErrAlertDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", build.GetVersion())
	req.Header.Set("Idempotency-Key", payload.ID)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrAlertDeliveryFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: relay answered %s", types.ErrAlertDeliveryFailed, resp.Status)
	}

	log.Ctx(ctx).Debug().Str("id", payload.ID).Str("subject", msg.Subject).Msg("message relayed")
	return nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct{}

func (s *LogSender) Send(ctx context.Context, msg *types.Message) error {
	log.Ctx(ctx).Info().
		Strs("recipients", msg.Recipients).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("alert")
	return nil
}
