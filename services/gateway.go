package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SendResult is the outcome of one gateway send. ExternalID carries the
// provider-assigned message id when the provider returns one.
type SendResult struct {
	Success      bool
	ExternalID   string
	ErrorMessage string
}

// MessageGateway sends one WhatsApp text message to one phone number.
// The implementation is chosen once at startup, never per call.
type MessageGateway interface {
	SendText(phone, body string) SendResult
	CheckStatus() (bool, string)
}

// NewGatewayFromEnv selects the gateway implementation from environment
// configuration. Missing credentials fall back to the simulated gateway so
// the application always starts.
func NewGatewayFromEnv() MessageGateway {
	switch strings.ToLower(os.Getenv("WHATSAPP_PROVIDER")) {
	case "twilio":
		if os.Getenv("TWILIO_ACCOUNT_SID") != "" && os.Getenv("TWILIO_AUTH_TOKEN") != "" {
			log.Println("WhatsApp gateway: Twilio")
			return NewTwilioGateway()
		}
		log.Println("Twilio selected but TWILIO_ACCOUNT_SID/TWILIO_AUTH_TOKEN missing, using simulated gateway")
		return &SimulatedGateway{}
	default:
		g := NewGreenAPIGateway(
			os.Getenv("GREEN_API_URL"),
			os.Getenv("GREEN_API_TOKEN"),
			os.Getenv("GREEN_API_INSTANCE_ID"),
		)
		if g.configured() {
			log.Printf("WhatsApp gateway: Green-API %s (instance %s)", g.apiURL, g.instanceID)
			return g
		}
		log.Println("Green-API credentials missing, using simulated gateway")
		return &SimulatedGateway{}
	}
}

// NormalizePhone strips formatting and applies the Spanish country code to
// bare 9-digit mobile numbers.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	clean := digits.String()

	if len(clean) == 9 && (clean[0] == '6' || clean[0] == '7') {
		clean = "34" + clean
	}
	return clean
}

// GreenAPIGateway sends through the Green-API REST endpoint.
type GreenAPIGateway struct {
	apiURL     string
	token      string
	instanceID string
	client     *http.Client
}

func NewGreenAPIGateway(apiURL, token, instanceID string) *GreenAPIGateway {
	return &GreenAPIGateway{
		apiURL:     strings.TrimRight(apiURL, "/"),
		token:      token,
		instanceID: instanceID,
		// One stuck send must not stall the whole broadcast tick.
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *GreenAPIGateway) configured() bool {
	return g.apiURL != "" && g.token != "" && g.instanceID != ""
}

func (g *GreenAPIGateway) SendText(phone, body string) SendResult {
	if !g.configured() {
		return SendResult{ErrorMessage: "Green-API is not configured (missing URL, token or instance id)"}
	}

	url := fmt.Sprintf("%s/waInstance%s/sendMessage/%s", g.apiURL, g.instanceID, g.token)
	payload := map[string]string{
		"chatId":  NormalizePhone(phone) + "@c.us",
		"message": body,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return SendResult{ErrorMessage: "Failed to encode request: " + err.Error()}
	}

	resp, err := g.client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return SendResult{ErrorMessage: "Connection error: " + err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return SendResult{ErrorMessage: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(respBody))}
	}

	var parsed struct {
		IDMessage string `json:"idMessage"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.IDMessage == "" {
		return SendResult{ErrorMessage: "Unexpected response: " + string(respBody)}
	}

	return SendResult{Success: true, ExternalID: parsed.IDMessage}
}

func (g *GreenAPIGateway) CheckStatus() (bool, string) {
	if !g.configured() {
		return false, "Incomplete configuration: missing URL, token or instance id"
	}

	url := fmt.Sprintf("%s/waInstance%s/getStateInstance/%s", g.apiURL, g.instanceID, g.token)
	resp, err := g.client.Get(url)
	if err != nil {
		return false, "Connection error: " + err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	var parsed struct {
		StateInstance string `json:"stateInstance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, "Unexpected response: " + err.Error()
	}
	if parsed.StateInstance == "authorized" {
		return true, "Instance authorized and ready"
	}
	return false, "Instance state: " + parsed.StateInstance
}

// TwilioGateway sends through the Twilio WhatsApp API.
type TwilioGateway struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioGateway() *TwilioGateway {
	return &TwilioGateway{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: os.Getenv("TWILIO_ACCOUNT_SID"),
			Password: os.Getenv("TWILIO_AUTH_TOKEN"),
		}),
		from: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
	}
}

func (g *TwilioGateway) SendText(phone, body string) SendResult {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:+" + NormalizePhone(phone))
	params.SetFrom("whatsapp:" + g.from)
	params.SetBody(body)

	resp, err := g.client.Api.CreateMessage(params)
	if err != nil {
		return SendResult{ErrorMessage: err.Error()}
	}

	result := SendResult{Success: true}
	if resp.Sid != nil {
		result.ExternalID = *resp.Sid
	}
	return result
}

func (g *TwilioGateway) CheckStatus() (bool, string) {
	if g.from == "" {
		return false, "TWILIO_WHATSAPP_NUMBER not set"
	}
	return true, "Twilio client configured"
}

// SimulatedGateway logs sends instead of delivering them. Used in
// development and whenever provider credentials are absent. Roughly one in
// ten simulated sends fails.
type SimulatedGateway struct{}

func (g *SimulatedGateway) SendText(phone, body string) SendResult {
	preview := body
	if len(preview) > 50 {
		preview = preview[:50] + "..."
	}
	log.Printf("SIMULATED send to %s: %s", phone, preview)

	if rand.Float64() < 0.1 {
		return SendResult{ErrorMessage: "Simulated send error"}
	}
	return SendResult{Success: true, ExternalID: "SIM-" + uuid.NewString()}
}

func (g *SimulatedGateway) CheckStatus() (bool, string) {
	return true, "Simulation mode active"
}
