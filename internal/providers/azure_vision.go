package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"GuardianPath/internal/models"
	"GuardianPath/pkg/util"
)

const (
	azureVisionName    = "azure-vision"
	azureVisionAnalyze = "/vision/v3.2/analyze?visualFeatures=Objects,Description,Tags,Adult&details=Landmarks&language=en"
	noDescription      = "No description available"
)

type AzureVision struct {
	Endpoint string
	Key      string
	Timeout  time.Duration

	client *http.Client
}

func NewAzureVision(endpoint, key string, timeout time.Duration) *AzureVision {
	return &AzureVision{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Key:      key,
		Timeout:  timeout,
		client:   &http.Client{},
	}
}

type visionScore struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type visionResponse struct {
	Description struct {
		Captions []struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"captions"`
	} `json:"description"`
	Objects []struct {
		Object     string            `json:"object"`
		Confidence float64           `json:"confidence"`
		Rectangle  *models.Rectangle `json:"rectangle"`
	} `json:"objects"`
	Tags  []visionScore `json:"tags"`
	Adult struct {
		IsAdultContent bool `json:"isAdultContent"`
		IsRacyContent  bool `json:"isRacyContent"`
	} `json:"adult"`
	Categories []struct {
		Detail *struct {
			Landmarks []visionScore `json:"landmarks"`
		} `json:"detail"`
	} `json:"categories"`
}

func (v *AzureVision) AnalyzeImage(ctx context.Context, photoDataURI string) (*models.ImageAnalysis, error) {
	const op = "analyze"
	if v.Endpoint == "" || v.Key == "" {
		return nil, notConfigured(azureVisionName, op)
	}
	image, _, err := util.DecodeDataURI(photoDataURI)
	if err != nil {
		return nil, &ProviderError{Provider: azureVisionName, Op: op, Err: err}
	}

	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint+azureVisionAnalyze, bytes.NewReader(image))
	if err != nil {
		return nil, &ProviderError{Provider: azureVisionName, Op: op, Err: err}
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", v.Key)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: azureVisionName, Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{Provider: azureVisionName, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", http.StatusText(resp.StatusCode))}
	}

	var body visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ProviderError{Provider: azureVisionName, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return body.toAnalysis(), nil
}

func (r *visionResponse) toAnalysis() *models.ImageAnalysis {
	a := &models.ImageAnalysis{
		Description:    noDescription,
		Objects:        make([]models.Detection, 0, len(r.Objects)),
		Tags:           make([]models.Detection, 0, len(r.Tags)),
		Landmarks:      []models.Detection{},
		IsAdultContent: r.Adult.IsAdultContent,
		IsRacyContent:  r.Adult.IsRacyContent,
	}
	if len(r.Description.Captions) > 0 {
		if c := r.Description.Captions[0]; c.Text != "" {
			a.Description = c.Text
			a.Confidence = c.Confidence
		}
	}
	for _, o := range r.Objects {
		a.Objects = append(a.Objects, models.Detection{Name: o.Object, Confidence: o.Confidence, Rectangle: o.Rectangle})
	}
	for _, t := range r.Tags {
		a.Tags = append(a.Tags, models.Detection{Name: t.Name, Confidence: t.Confidence})
	}
	for _, c := range r.Categories {
		if c.Detail == nil {
			continue
		}
		for _, l := range c.Detail.Landmarks {
			a.Landmarks = append(a.Landmarks, models.Detection{Name: l.Name, Confidence: l.Confidence})
		}
	}
	return a
}
