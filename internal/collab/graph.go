package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// GraphConfig holds the app registration used for client-credentials auth.
type GraphConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
}

// GraphBridge talks to a Microsoft Graph compatible chat API.
type GraphBridge struct {
	httpClient *http.Client
	baseURL    string
}

// NewGraphBridge builds a bridge whose HTTP client fetches and refreshes
// app tokens on its own.
func NewGraphBridge(cfg GraphConfig) *GraphBridge {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	// token requests share the timeout of API calls
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	client := cc.Client(ctx)
	client.Timeout = timeout

	return &GraphBridge{
		httpClient: client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

type chatMember struct {
	ODataType string   `json:"@odata.type"`
	Roles     []string `json:"roles"`
	UserBind  string   `json:"user@odata.bind"`
}

type createChatRequest struct {
	ChatType string       `json:"chatType"`
	Topic    string       `json:"topic"`
	Members  []chatMember `json:"members"`
}

type chatMessageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type postMessageRequest struct {
	Body chatMessageBody `json:"body"`
}

func (b *GraphBridge) CreateChannelForTicket(ctx context.Context, ticketNumber, title string, participantExternalIDs []string) (string, error) {
	members := make([]chatMember, 0, len(participantExternalIDs))
	for _, id := range participantExternalIDs {
		members = append(members, chatMember{
			ODataType: "#microsoft.graph.aadUserConversationMember",
			Roles:     []string{"owner"},
			UserBind:  fmt.Sprintf("%s/users('%s')", b.baseURL, id),
		})
	}
	req := createChatRequest{
		ChatType: "group",
		Topic:    fmt.Sprintf("%s: %s", ticketNumber, title),
		Members:  members,
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := b.do(ctx, "/chats", req, &resp); err != nil {
		return "", fmt.Errorf("create chat for %s: %w", ticketNumber, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("create chat for %s: empty chat id", ticketNumber)
	}
	return resp.ID, nil
}

func (b *GraphBridge) PostMessage(ctx context.Context, channelID, text, senderName string) error {
	req := postMessageRequest{Body: chatMessageBody{
		ContentType: "text",
		Content:     fmt.Sprintf("%s: %s", senderName, text),
	}}
	if err := b.do(ctx, "/chats/"+channelID+"/messages", req, nil); err != nil {
		return fmt.Errorf("post message to %s: %w", channelID, err)
	}
	return nil
}

func (b *GraphBridge) do(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph api %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
