package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"moodboard-backend/internal/config"
	"moodboard-backend/internal/model"
)

const extractSystemPrompt = `You will be provided with sentences describing an illustration. Extract keywords of three types. "Subject matter": single nouns naming the physical objects, characters or landscape shown; no adjectives. "Action & pose": word- or phrase-level actions the subject performs. "Theme & mood": words not directly visible that convey the overall feel; one or two words. Exclude style words such as cartoon, illustration, image or photo. Collapse plural and inflected forms to their root. Respond with only a JSON object whose keys are "Subject matter", "Action & pose" and "Theme & mood", each mapping to an array of strings.`

const recommendSystemPrompt = `You support a design team's ideation by expanding a set of liked keywords. Combine the given keywords or find surprising associations to propose new ones; do not paraphrase or repeat the originals. "Subject matter" and "Theme & mood" suggestions must be single words; include at least one subject matter. Respond with only a JSON object whose keys are "Subject matter", "Action & pose" and "Theme & mood", each mapping to an array of strings.`

const promptSystemPrompt = `You write prompts for a text-to-image model. Given a design brief and a set of weighted keywords, compose diverse, concrete prompts that honor the highly voted keywords and avoid the downvoted ones. Respond with only a JSON array of prompt strings.`

// ExtractedKeyword one keyword with its category
type ExtractedKeyword struct {
	Type    string `json:"type"`
	Keyword string `json:"keyword"`
}

// LLM wraps the OpenAI API for keyword and image generation
type LLM struct {
	client  *openai.Client
	enabled bool
}

// NewLLM builds the client; a missing key disables every call.
func NewLLM(cfg config.AIConfig) *LLM {
	if cfg.OpenAIKey == "" || !cfg.Enabled {
		return &LLM{enabled: false}
	}
	return &LLM{client: openai.NewClient(cfg.OpenAIKey), enabled: true}
}

// Enabled reports whether AI calls are configured.
func (l *LLM) Enabled() bool {
	return l.enabled
}

func (l *LLM) chat(ctx context.Context, system, user string) (string, error) {
	if !l.enabled {
		return "", fmt.Errorf("ai is not configured")
	}

	var content string
	err := withRetry(ctx, "chat", defaultRetries, func() error {
		resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: openai.GPT4oMini,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty completion")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	return content, err
}

// stripFence removes a ```json ... ``` fence if the model added one.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func parseKeywordMap(raw string) ([]ExtractedKeyword, error) {
	var byType map[string][]string
	if err := json.Unmarshal([]byte(stripFence(raw)), &byType); err != nil {
		return nil, fmt.Errorf("unparsable keyword response: %w", err)
	}

	var keywords []ExtractedKeyword
	for keywordType, words := range byType {
		if !model.ValidKeywordType(keywordType) {
			continue
		}
		seen := map[string]bool{}
		for _, word := range words {
			word = strings.TrimSpace(word)
			if word == "" || seen[strings.ToLower(word)] {
				continue
			}
			seen[strings.ToLower(word)] = true
			keywords = append(keywords, ExtractedKeyword{Type: keywordType, Keyword: word})
		}
	}
	return keywords, nil
}

// ExtractKeywords distills tile captions into typed keywords.
func (l *LLM) ExtractKeywords(ctx context.Context, captions []string) ([]ExtractedKeyword, error) {
	if len(captions) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for _, c := range captions {
		sb.WriteString("- ")
		sb.WriteString(c)
		sb.WriteString("\n")
	}

	raw, err := l.chat(ctx, extractSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}
	return parseKeywordMap(raw)
}

// RecommendKeywords proposes new keywords from the ones users liked.
func (l *LLM) RecommendKeywords(ctx context.Context, liked []ExtractedKeyword) ([]ExtractedKeyword, error) {
	if len(liked) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Here are the original keywords:\n")
	for _, kw := range liked {
		fmt.Fprintf(&sb, "- %s: %s\n", kw.Type, kw.Keyword)
	}

	raw, err := l.chat(ctx, recommendSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}
	return parseKeywordMap(raw)
}

// WeightedKeyword a keyword with its net vote score
type WeightedKeyword struct {
	Type    string
	Keyword string
	Score   int
}

// GeneratePrompts composes count image prompts from the brief and the
// board's voted keywords.
func (l *LLM) GeneratePrompts(ctx context.Context, brief string, keywords []WeightedKeyword, count int) ([]string, error) {
	if count <= 0 {
		count = 3
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write %d prompts.\n\nDesign brief:\n%s\n\nKeywords (score is upvotes minus downvotes):\n", count, brief)
	for _, kw := range keywords {
		fmt.Fprintf(&sb, "- %s: %s (score %d)\n", kw.Type, kw.Keyword, kw.Score)
	}

	raw, err := l.chat(ctx, promptSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	var prompts []string
	if err := json.Unmarshal([]byte(stripFence(raw)), &prompts); err != nil {
		return nil, fmt.Errorf("unparsable prompt response: %w", err)
	}
	if len(prompts) > count {
		prompts = prompts[:count]
	}
	return prompts, nil
}

// GenerateImage renders one prompt and returns the hosted image URL.
func (l *LLM) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if !l.enabled {
		return "", fmt.Errorf("ai is not configured")
	}

	var url string
	err := withRetry(ctx, "image", defaultRetries, func() error {
		resp, err := l.client.CreateImage(ctx, openai.ImageRequest{
			Prompt:         prompt,
			Model:          openai.CreateImageModelDallE3,
			Size:           openai.CreateImageSize1024x1024,
			ResponseFormat: openai.CreateImageResponseFormatURL,
			N:              1,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("empty image response")
		}
		url = resp.Data[0].URL
		return nil
	})
	return url, err
}
