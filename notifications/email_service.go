package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	config "github.com/mwangikib/tutorspace/configs"
)

type BrevoService struct {
	APIKey      string
	SenderEmail string
	SenderName  string
}

var EmailClient *BrevoService

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

func InitEmailService() {
	apiKey := config.Config("BREVO_API_KEY")
	senderEmail := config.Config("EMAIL_SENDER")
	senderName := config.Config("EMAIL_SENDER_NAME")

	if apiKey == "" || senderEmail == "" || senderName == "" {
		log.Println("⚠️ Email service not configured. Missing API Key, Sender Email, or Sender Name.")
		EmailClient = nil
		return
	}

	EmailClient = &BrevoService{
		APIKey:      apiKey,
		SenderEmail: senderEmail,
		SenderName:  senderName,
	}
	log.Println("✅ Email service initialized successfully.")
}

// SendEmail delivers one transactional email through Brevo. Failures are
// logged and swallowed: notification delivery never rolls back a core
// transition.
func SendEmail(recipientName, recipientEmail, subject, htmlContent string) {
	if EmailClient == nil {
		log.Printf("Email service not configured, skipping email to %s (%q)", recipientEmail, subject)
		return
	}

	payload := brevoPayload{
		Sender: map[string]string{
			"name":  EmailClient.SenderName,
			"email": EmailClient.SenderEmail,
		},
		To: []map[string]string{
			{"name": recipientName, "email": recipientEmail},
		},
		Subject:     subject,
		HTMLContent: htmlContent,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("🔥 Failed to marshal email payload: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, "https://api.brevo.com/v3/smtp/email", bytes.NewBuffer(body))
	if err != nil {
		log.Printf("🔥 Failed to build email request: %v", err)
		return
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("api-key", EmailClient.APIKey)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("🔥 Failed to send email to %s: %v", recipientEmail, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("🔥 Brevo rejected email to %s: %d %s", recipientEmail, resp.StatusCode, string(respBody))
		return
	}

	fmt.Printf("✅ Email sent to %s: %s\n", recipientEmail, subject)
}
