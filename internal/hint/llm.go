// internal/hint/llm.go
//
// LLM-backed hint oracle over an OpenAI-compatible chat completions API.
// The prompt asks for a cryptic Portuguese clue that avoids the champion's
// name and exact title. Any failure along the way degrades to Fallback —
// callers never see an error.

package hint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/champquiz/go-server/internal/catalog"
)

const (
	defaultModel   = "gpt-4.1-mini"
	defaultBaseURL = "https://api.openai.com/v1"
)

// LLMOracle implements Oracle using an OpenAI-compatible chat completions API.
type LLMOracle struct {
	client  *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewLLMOracle creates an Oracle backed by an OpenAI-compatible endpoint.
func NewLLMOracle(apiKey, model, baseURL string) (*LLMOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm oracle: apiKey is required")
	}
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &LLMOracle{
		client:  &http.Client{Timeout: 30 * time.Second},
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Hint implements Oracle. It absorbs every failure into Fallback so that the
// quiz core only ever handles opaque displayable text.
func (o *LLMOracle) Hint(ctx context.Context, e catalog.Entity) string {
	text, err := o.complete(ctx, hintPrompt(e))
	if err != nil {
		log.Warn().Err(err).Str("champion", e.ID).Msg("hint oracle failed")
		return Fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback
	}
	return text
}

// hintPrompt builds the clue request for one champion.
// Mirrors the house rules for hints: Portuguese, cryptic, no name, no exact
// title, focused on abilities/lore/visuals, at most 25 words.
func hintPrompt(e catalog.Entity) string {
	return fmt.Sprintf(`Você é um especialista em League of Legends.
Preciso que você me dê uma dica difícil/enigmática sobre o campeão %q (%s).

Regras:
1. Responda EM PORTUGUÊS.
2. NÃO mencione o nome do campeão na dica.
3. NÃO mencione o título exato do campeão (ex: não diga "A Raposa de Nove Caudas").
4. Foque em suas habilidades, história (lore) ou características visuais.
5. Máximo de 25 palavras.
6. Seja criativo, mas direto.`, e.Name, e.Title)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// complete sends one chat completion request and returns the reply text.
func (o *LLMOracle) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       o.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.9,
		MaxTokens:   200,
	})
	if err != nil {
		return "", fmt.Errorf("hint complete: marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("hint complete: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("hint complete: http: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("hint complete: read body: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("hint complete: unmarshal: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("hint complete: API error (%s): %s", resp.Error.Type, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("hint complete: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
