package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/example/minglin/internal/config"
)

// SMSService sends text messages through the Probase SMS gateway.
type SMSService struct {
	url         string
	username    string
	password    string
	senderID    string
	source      string
	countryCode string
	client      *http.Client
}

// NewSMSService creates an SMSService from configuration.
func NewSMSService(cfg *config.Config) *SMSService {
	return &SMSService{
		url:         cfg.ProbaseURL,
		username:    cfg.ProbaseUsername,
		password:    cfg.ProbasePassword,
		senderID:    cfg.ProbaseSenderID,
		source:      cfg.ProbaseSource,
		countryCode: cfg.SMSCountryCode,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type probaseMessage struct {
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Recipient []string `json:"recipient"`
	SenderID  string   `json:"senderid"`
	Message   string   `json:"message"`
	Source    string   `json:"source"`
	MsgRef    string   `json:"msg_ref"`
}

// Send delivers a message to a single phone number. The number is normalized
// to the gateway's expected form: leading "+" stripped, country code
// prepended.
func (s *SMSService) Send(phone, message string) error {
	if s.url == "" || s.username == "" {
		log.Println("[SMS] gateway not configured, skipping dispatch")
		return nil
	}

	payload := probaseMessage{
		Username:  s.username,
		Password:  s.password,
		Recipient: []string{s.NormalizeNumber(phone)},
		SenderID:  s.senderID,
		Message:   message,
		Source:    s.source,
		MsgRef:    newMsgRef(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[SMS] failed to send to %s: %v", phone, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[SMS] unexpected status %d sending to %s", resp.StatusCode, phone)
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	log.Printf("[SMS] sent to %s", phone)
	return nil
}

// NormalizeNumber converts a phone number to the gateway format.
func (s *SMSService) NormalizeNumber(phone string) string {
	return s.countryCode + strings.TrimPrefix(phone, "+")
}

// newMsgRef builds a provider-side tracing reference: millisecond timestamp
// followed by a 4-digit random component.
func newMsgRef() string {
	return fmt.Sprintf("%d%d", time.Now().UnixMilli(), 1000+rand.Intn(9000))
}
