package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/arkocart/storefront/internal/settings"
)

// Message is one outgoing template notification.
type Message struct {
	To       string
	Template string
	Params   []string
}

// Provider delivers a template message to one recipient.
type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// SimulatedProvider logs the outgoing payload and always succeeds. Selected by
// the "mock_server" provider setting.
type SimulatedProvider struct {
	Log *slog.Logger
}

func (p *SimulatedProvider) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("recipient phone number is missing")
	}
	p.Log.Info("simulating whatsapp template message",
		"to", msg.To,
		"template", msg.Template,
		"params", msg.Params,
	)
	return nil
}

// GraphProvider posts template messages to the WhatsApp Graph API. Selected by
// the "graph_api" provider setting.
type GraphProvider struct {
	Client  *http.Client
	BaseURL string // overridable for tests, defaults to the Graph API host
	Token   string
	PhoneID string
	Version string
}

type graphParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type graphComponent struct {
	Type       string           `json:"type"`
	SubType    string           `json:"sub_type,omitempty"`
	Index      string           `json:"index,omitempty"`
	Parameters []graphParameter `json:"parameters"`
}

type graphTemplate struct {
	Name       string            `json:"name"`
	Language   map[string]string `json:"language"`
	Components []graphComponent  `json:"components,omitempty"`
}

type graphPayload struct {
	MessagingProduct string        `json:"messaging_product"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Template         graphTemplate `json:"template"`
}

func (p *GraphProvider) Send(ctx context.Context, msg Message) error {
	if p.Token == "" || p.PhoneID == "" || p.Version == "" || msg.Template == "" {
		return fmt.Errorf("graph api settings (token, phone id, version or template name) are missing")
	}

	to := FormatPhone(msg.To)
	if to == "" {
		return fmt.Errorf("invalid recipient phone number: %q", msg.To)
	}

	payload := graphPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: graphTemplate{
			Name:     msg.Template,
			Language: map[string]string{"code": "en_US"},
		},
	}

	// The API rejects a components block for templates without variables.
	if len(msg.Params) > 0 {
		body := graphComponent{Type: "body"}
		for _, v := range msg.Params {
			body.Parameters = append(body.Parameters, graphParameter{Type: "text", Text: v})
		}
		button := graphComponent{
			Type:       "button",
			SubType:    "url",
			Index:      "0",
			Parameters: []graphParameter{{Type: "text", Text: "www.google.com"}},
		}
		payload.Template.Components = []graphComponent{body, button}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	base := p.BaseURL
	if base == "" {
		base = "https://graph.facebook.com"
	}
	url := fmt.Sprintf("%s/%s/%s/messages", base, p.Version, p.PhoneID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.Token)
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("graph api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph api error: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// providerFor maps the configured provider name to an implementation. Unknown
// or "none" providers yield nil: the dispatcher records those as skipped.
func providerFor(ns settings.WhatsappSettings, log *slog.Logger) Provider {
	switch ns.APIProvider {
	case "mock_server":
		return &SimulatedProvider{Log: log}
	case "graph_api":
		return &GraphProvider{
			Token:   ns.WhatsappToken,
			PhoneID: ns.WhatsappPhoneID,
			Version: ns.WhatsappVersion,
		}
	default:
		return nil
	}
}
