package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"GuardianPath/internal/models"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const (
	openAIVisionName = "openai-vision"
	visionPrompt     = `You describe photos taken by a person who pressed an emergency panic button.
Reply with a single JSON object using exactly these keys:
"description" (one sentence), "confidence" (0..1), "objects" ([{"name","confidence"}]),
"tags" ([{"name","confidence"}]), "isAdultContent" (bool), "isRacyContent" (bool),
"landmarks" ([{"name","confidence"}]). Do not add any other text.`
)

// OpenAIVision analyzes photos with an OpenAI compatible chat model.
type OpenAIVision struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewOpenAIVision returns a client; an empty apiKey makes every call fail
// with ErrNotConfigured.
func NewOpenAIVision(apiKey, baseURL, model string, timeout time.Duration, logger *logrus.Logger) *OpenAIVision {
	if logger == nil {
		logger = logrus.New()
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	v := &OpenAIVision{model: model, timeout: timeout, logger: logger}
	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = strings.TrimRight(baseURL, "/")
		}
		v.client = openai.NewClientWithConfig(cfg)
	}
	return v
}

type openAIAnalysis struct {
	Description    string             `json:"description"`
	Confidence     float64            `json:"confidence"`
	Objects        []models.Detection `json:"objects"`
	Tags           []models.Detection `json:"tags"`
	IsAdultContent bool               `json:"isAdultContent"`
	IsRacyContent  bool               `json:"isRacyContent"`
	Landmarks      []models.Detection `json:"landmarks"`
}

func (v *OpenAIVision) AnalyzeImage(ctx context.Context, photoDataURI string) (*models.ImageAnalysis, error) {
	const op = "analyze"
	if v.client == nil {
		return nil, notConfigured(openAIVisionName, op)
	}
	if !strings.HasPrefix(photoDataURI, "data:") {
		photoDataURI = "data:image/jpeg;base64," + photoDataURI
	}
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: visionPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: "Analyze this photo."},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    photoDataURI,
						Detail: openai.ImageURLDetailLow,
					}},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.2,
	}

	start := time.Now()
	resp, err := v.client.CreateChatCompletion(ctx, req)
	if err != nil {
		v.logger.WithError(err).WithField("model", v.model).Warn("vision completion failed")
		return nil, &ProviderError{Provider: openAIVisionName, Op: op, StatusCode: statusOf(err), Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: openAIVisionName, Op: op, Err: errors.New("empty completion")}
	}
	v.logger.WithFields(logrus.Fields{
		"model":    v.model,
		"tokens":   resp.Usage.TotalTokens,
		"duration": time.Since(start),
	}).Debug("vision completion done")

	var out openAIAnalysis
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return nil, &ProviderError{Provider: openAIVisionName, Op: op, Err: fmt.Errorf("decode completion: %w", err)}
	}
	return out.toAnalysis(), nil
}

func (o openAIAnalysis) toAnalysis() *models.ImageAnalysis {
	a := &models.ImageAnalysis{
		Description:    o.Description,
		Confidence:     o.Confidence,
		Objects:        o.Objects,
		Tags:           o.Tags,
		IsAdultContent: o.IsAdultContent,
		IsRacyContent:  o.IsRacyContent,
		Landmarks:      o.Landmarks,
	}
	if a.Description == "" {
		a.Description = noDescription
	}
	if a.Objects == nil {
		a.Objects = []models.Detection{}
	}
	if a.Tags == nil {
		a.Tags = []models.Detection{}
	}
	if a.Landmarks == nil {
		a.Landmarks = []models.Detection{}
	}
	return a
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
