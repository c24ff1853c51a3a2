package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts Options) (*Response, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(opts.Temperature)),
		MaxOutputTokens: int32(opts.MaxOutputTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w: %w", ErrUnavailable, err)
	}

	out := &Response{}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			out.Candidates = append(out.Candidates, Candidate{})
			continue
		}
		var texts []string
		for _, p := range cand.Content.Parts {
			if p != nil && p.Text != "" && !p.Thought {
				texts = append(texts, p.Text)
			}
		}
		out.Candidates = append(out.Candidates, Candidate{
			Content: &Content{Parts: []Part{{Text: joinParts(texts)}}},
		})
	}
	return out, nil
}
