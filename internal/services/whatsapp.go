package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/meditrack/reminder-service/internal/config"
	"github.com/meditrack/reminder-service/pkg/circuitbreaker"
)

// WhatsAppClient delivers guardian alerts through the hosted WhatsApp
// Business API.
type WhatsAppClient struct {
	apiURL        string
	phoneNumberID string
	token         string
	httpClient    *http.Client
	cb            *gobreaker.CircuitBreaker
	log           *zap.Logger
}

func NewWhatsAppClient(cfg config.WhatsAppConfig, log *zap.Logger) *WhatsAppClient {
	return &WhatsAppClient{
		apiURL:        cfg.APIURL,
		phoneNumberID: cfg.PhoneNumberID,
		token:         cfg.Token,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		cb:  circuitbreaker.NewCircuitBreaker("whatsapp-gateway"),
		log: log,
	}
}

type whatsAppText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

// SendText delivers a text message to an E.164 phone number. Returns true
// when the gateway accepted the message.
func (w *WhatsAppClient) SendText(ctx context.Context, to, body string) (bool, error) {
	if w.token == "" {
		return false, fmt.Errorf("whatsapp token not configured")
	}

	msg := whatsAppMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               strings.TrimPrefix(to, "+"),
		Type:             "text",
		Text:             whatsAppText{Body: body},
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return false, err
	}

	_, err = w.cb.Execute(func() (interface{}, error) {
		url := fmt.Sprintf("%s/%s/messages", w.apiURL, w.phoneNumberID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+w.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("whatsapp API error: %s: %s", resp.Status, string(data))
		}
		return nil, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// SendMedicationMissed sends the fixed missed-medication template to the
// guardian.
func (w *WhatsAppClient) SendMedicationMissed(ctx context.Context, to, medicationName, scheduledTime string) error {
	message := "🚨 Medication Alert!\n\nThe patient missed their medication:\n\n" +
		fmt.Sprintf("💊 Medication: %s\n", medicationName) +
		fmt.Sprintf("⏰ Scheduled Time: %s\n\n", scheduledTime) +
		"Please check on them to ensure they're okay and remind them to take their medication.\n\n" +
		"This is an automated message from MediTrack."

	ok, err := w.SendText(ctx, to, message)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("gateway rejected missed medication alert to %s", to)
	}
	w.log.Info("sent missed medication alert",
		zap.String("to", to), zap.String("medication", medicationName))
	return nil
}

// SendTest sends the greeting used by the settings page to confirm the
// guardian number.
func (w *WhatsAppClient) SendTest(ctx context.Context, to string) error {
	message := "👋 Hello! This is a test message from MediTrack. " +
		"You will receive medication alerts at this number when needed."
	ok, err := w.SendText(ctx, to, message)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("gateway rejected test message to %s", to)
	}
	return nil
}
