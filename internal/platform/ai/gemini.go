// Package ai wraps the outbound Gemini generateContent API used for medical
// report analysis and the health-assistant chat. All failures are surfaced as
// plain errors so callers can degrade to fallback values; nothing in this
// package is a hard dependency for persistence.
package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("gemini api key is not configured")

// Analysis is the structured result of a report analysis call.
type Analysis struct {
	Summary         string   `json:"summary"`
	Abnormalities   []string `json:"abnormalities"`
	DoctorQuestions []string `json:"doctorQuestions"`
}

// Turn is a single prior chat message supplied as conversation context.
type Turn struct {
	Sender string // "user" or "ai"
	Text   string
}

// Client is the outbound AI contract used by the report and chat services.
type Client interface {
	AnalyzeFile(ctx context.Context, filePath, reportType string) (*Analysis, error)
	AnalyzeData(ctx context.Context, data map[string]interface{}, reportType string) (*Analysis, error)
	Chat(ctx context.Context, message string, history []Turn) (string, error)
}

// GeminiClient calls the Gemini REST API. One configured model serves every
// call site.
type GeminiClient struct {
	http   *resty.Client
	apiKey string
	model  string
}

func NewGeminiClient(apiKey, model string, timeout time.Duration) *GeminiClient {
	return &GeminiClient{
		http:   resty.New().SetBaseURL(defaultBaseURL).SetTimeout(timeout),
		apiKey: apiKey,
		model:  model,
	}
}

// SetBaseURL overrides the API endpoint. Intended for tests.
func (c *GeminiClient) SetBaseURL(u string) {
	c.http.SetBaseURL(u)
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type contentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type generateRequest struct {
	Contents []struct {
		Parts []contentPart `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// generate performs one generateContent call and returns the first candidate
// text.
func (c *GeminiClient) generate(ctx context.Context, parts []contentPart) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	var req generateRequest
	req.Contents = append(req.Contents, struct {
		Parts []contentPart `json:"parts"`
	}{Parts: parts})

	var out generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(&req).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/models/%s:generateContent", c.model))
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if resp.IsError() {
		if out.Error != nil {
			return "", fmt.Errorf("gemini error %d: %s", out.Error.Code, out.Error.Message)
		}
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode())
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	return out.Candidates[0].Content.Parts[0].Text, nil
}

// ---------------------------------------------------------------------------
// Prompts
// ---------------------------------------------------------------------------

func analysisPrompt(reportType string) string {
	return fmt.Sprintf(`Analyze this medical report (%s) and provide a structured response in JSON format with the following fields:
1. summary: A brief summary of the report findings in English (max 200 words)
2. abnormalities: An array of strings listing any abnormal values or findings
3. doctorQuestions: An array of 3-5 relevant questions the patient should ask their doctor

Focus on:
- Highlighting any values outside normal ranges
- Explaining what each abnormal value might indicate
- Suggesting appropriate follow-up questions

Return ONLY valid JSON, no additional text.`, reportType)
}

// AnalyzeFile base64-encodes the file at filePath and asks the model for the
// JSON analysis contract. The MIME type is derived from the file extension.
func (c *GeminiClient) AnalyzeFile(ctx context.Context, filePath, reportType string) (*Analysis, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read report file: %w", err)
	}

	parts := []contentPart{
		{Text: analysisPrompt(reportType)},
		{InlineData: &inlineData{
			MimeType: mimeTypeForExt(filepath.Ext(filePath)),
			Data:     base64.StdEncoding.EncodeToString(data),
		}},
	}

	text, err := c.generate(ctx, parts)
	if err != nil {
		return nil, err
	}
	return ParseAnalysis(text), nil
}

// AnalyzeData serializes the manually entered values and asks the model for
// the same JSON contract as AnalyzeFile.
func (c *GeminiClient) AnalyzeData(ctx context.Context, data map[string]interface{}, reportType string) (*Analysis, error) {
	serialized, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize report data: %w", err)
	}

	prompt := fmt.Sprintf("%s\n\nReport Data:\n%s", analysisPrompt(reportType), serialized)
	text, err := c.generate(ctx, []contentPart{{Text: prompt}})
	if err != nil {
		return nil, err
	}
	return ParseAnalysis(text), nil
}

// Chat sends a free-text message with up to the last five prior turns as
// context and returns the model's reply verbatim (no JSON contract).
func (c *GeminiClient) Chat(ctx context.Context, message string, history []Turn) (string, error) {
	var b strings.Builder
	b.WriteString("You are a helpful health assistant. Answer health-related questions clearly and provide general guidance.\n")
	b.WriteString("Always remind users to consult with healthcare professionals for medical advice.\n\n")

	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, turn := range history {
			who := "AI"
			if turn.Sender == "user" {
				who = "User"
			}
			fmt.Fprintf(&b, "%s: %s\n", who, turn.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User: %s\nAI:", message)

	return c.generate(ctx, []contentPart{{Text: b.String()}})
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

var fallbackDoctorQuestions = []string{
	"Can you explain these results in detail?",
	"Are there any concerns I should be aware of?",
	"What follow-up actions do you recommend?",
}

// ParseAnalysis extracts the analysis JSON from raw model output. Code fences
// are stripped, the first brace-delimited object is parsed, and missing or
// malformed fields fall back to defaults rather than failing.
func ParseAnalysis(text string) *Analysis {
	jsonText := strings.TrimSpace(text)
	jsonText = strings.ReplaceAll(jsonText, "```json", "")
	jsonText = strings.ReplaceAll(jsonText, "```", "")

	if start := strings.Index(jsonText, "{"); start >= 0 {
		if end := strings.LastIndex(jsonText, "}"); end > start {
			jsonText = jsonText[start : end+1]
		}
	}

	var parsed struct {
		Summary         string   `json:"summary"`
		Abnormalities   []string `json:"abnormalities"`
		DoctorQuestions []string `json:"doctorQuestions"`
	}
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		summary := text
		if runes := []rune(summary); len(runes) > 500 {
			summary = string(runes[:500])
		}
		if strings.TrimSpace(summary) == "" {
			summary = "Analysis completed. Please consult with your doctor for detailed interpretation."
		}
		return &Analysis{
			Summary:         summary,
			Abnormalities:   []string{},
			DoctorQuestions: append([]string(nil), fallbackDoctorQuestions...),
		}
	}

	a := &Analysis{
		Summary:         parsed.Summary,
		Abnormalities:   parsed.Abnormalities,
		DoctorQuestions: parsed.DoctorQuestions,
	}
	if a.Summary == "" {
		a.Summary = "Analysis completed."
	}
	if a.Abnormalities == nil {
		a.Abnormalities = []string{}
	}
	if a.DoctorQuestions == nil {
		a.DoctorQuestions = []string{}
	}
	return a
}

// mimeTypeForExt maps an upload extension to the MIME type sent inline with
// the file. Unknown extensions default to JPEG, matching the upload filter
// which only admits images and PDFs.
func mimeTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "image/jpeg"
	}
}
