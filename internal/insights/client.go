// Package insights forwards prompts to the generative-text service and
// parses its JSON-shaped text responses. Every failure here is transient and
// per-feature; callers degrade to a fallback, never to a crash.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"reflectify/server/internal/model"
)

type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewClient(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("insights API key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create insights client: %w", err)
	}
	return &Client{client: client, model: modelName, timeout: timeout}, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate failed: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("empty response")
	}
	return text, nil
}

type JournalInsight struct {
	Summary     string   `json:"summary"`
	Mood        string   `json:"mood"`
	Suggestions []string `json:"suggestions"`
}

func (c *Client) JournalInsight(ctx context.Context, entries []model.JournalEntry) (JournalInsight, error) {
	var sb strings.Builder
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		fmt.Fprintf(&sb, "- %s: %s\n", entry.CreatedAt.Format("Mon Jan 2"), entry.Content)
	}

	text, err := c.generate(ctx, fmt.Sprintf(journalInsightPrompt, sb.String()))
	if err != nil {
		return JournalInsight{}, err
	}
	return parseJournalInsight(text)
}

func parseJournalInsight(text string) (JournalInsight, error) {
	payload, err := ExtractJSON(text)
	if err != nil {
		return JournalInsight{}, err
	}
	var insight JournalInsight
	if err := json.Unmarshal([]byte(payload), &insight); err != nil {
		return JournalInsight{}, fmt.Errorf("malformed insight payload: %w", err)
	}
	if insight.Summary == "" {
		return JournalInsight{}, fmt.Errorf("insight payload missing summary")
	}
	return insight, nil
}

type ChatReply struct {
	Reply   string `json:"reply"`
	Flagged bool   `json:"flagged"`
}

func (c *Client) ChatReply(ctx context.Context, history []model.ChatMessage, message string) (ChatReply, error) {
	var sb strings.Builder
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		speaker := "Student"
		if msg.Sender == model.ChatSenderAssistant {
			speaker = "Companion"
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, msg.Content)
	}

	text, err := c.generate(ctx, fmt.Sprintf(chatReplyPrompt, sb.String(), message))
	if err != nil {
		return ChatReply{}, err
	}
	return parseChatReply(text)
}

func parseChatReply(text string) (ChatReply, error) {
	payload, err := ExtractJSON(text)
	if err != nil {
		return ChatReply{}, err
	}
	var reply ChatReply
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		return ChatReply{}, fmt.Errorf("malformed reply payload: %w", err)
	}
	if reply.Reply == "" {
		return ChatReply{}, fmt.Errorf("reply payload missing text")
	}
	return reply, nil
}

type Activity struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Minutes     int    `json:"minutes"`
}

func (c *Client) MindfulnessActivities(ctx context.Context, mood string) ([]Activity, error) {
	text, err := c.generate(ctx, fmt.Sprintf(mindfulnessPrompt, mood))
	if err != nil {
		return nil, err
	}
	return parseActivities(text)
}

func parseActivities(text string) ([]Activity, error) {
	payload, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Activities []Activity `json:"activities"`
	}
	if err := json.Unmarshal([]byte(payload), &wrapper); err != nil {
		return nil, fmt.Errorf("malformed activities payload: %w", err)
	}
	if len(wrapper.Activities) == 0 {
		return nil, fmt.Errorf("activities payload empty")
	}
	return wrapper.Activities, nil
}

// FallbackActivities is served when the generative service is unavailable or
// returns garbage; mindfulness must keep working without it.
func FallbackActivities() []Activity {
	return []Activity{
		{Title: "Box breathing", Description: "Breathe in for four counts, hold for four, out for four, hold for four. Repeat five times.", Minutes: 3},
		{Title: "Five senses check", Description: "Name five things you can see, four you can hear, three you can touch, two you can smell, one you can taste.", Minutes: 5},
		{Title: "Shoulder reset", Description: "Roll your shoulders slowly backwards ten times, then sit tall and take three deep breaths.", Minutes: 2},
	}
}
