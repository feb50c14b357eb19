package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// CertificateAnalysis is the machine-generated reading of an uploaded scan.
// It is a hint for reviewers, never an authoritative verdict.
type CertificateAnalysis struct {
	LooksAuthentic   bool    `json:"looks_authentic"`
	Platform         string  `json:"platform"`
	StudentName      string  `json:"student_name"`
	CourseTitle      string  `json:"course_title"`
	Confidence       float64 `json:"confidence"`
	ExtractedDetails string  `json:"extracted_details"`
}

type AnalyzerService interface {
	AnalyzeImage(ctx context.Context, imageData []byte, mimeType string) (*CertificateAnalysis, error)
	Close()
}

type analyzerService struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewAnalyzerService creates a Gemini-backed certificate scan analyzer.
// Returns an error when GEMINI_API_KEY is not configured; callers treat the
// analyzer as optional.
func NewAnalyzerService(ctx context.Context) (AnalyzerService, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel("gemini-2.5-flash")
	model.SetTemperature(0.2)

	return &analyzerService{
		client: client,
		model:  model,
	}, nil
}

func (s *analyzerService) AnalyzeImage(ctx context.Context, imageData []byte, mimeType string) (*CertificateAnalysis, error) {
	prompt := `You are reviewing a scanned course-completion certificate for a student records office.
Extract what the document claims and estimate how likely it is to be a genuine certificate image
(not a screenshot of unrelated content, a blank page, or an obviously manipulated image).

Respond ONLY with JSON in this exact shape:
{"looks_authentic": bool, "platform": "issuing platform name", "student_name": "name on certificate",
"course_title": "course title", "confidence": 0.0-1.0, "extracted_details": "one short sentence of anything notable"}`

	format := strings.TrimPrefix(mimeType, "image/")
	if format == "" || format == mimeType {
		format = "png"
	}

	s.model.ResponseMIMEType = "application/json"
	resp, err := s.model.GenerateContent(ctx, genai.ImageData(format, imageData), genai.Text(prompt))
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response from LLM")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			var result CertificateAnalysis
			if err := json.Unmarshal([]byte(txt), &result); err != nil {
				return nil, fmt.Errorf("failed to parse JSON: %w", err)
			}
			return &result, nil
		}
	}

	return nil, fmt.Errorf("no text content in response")
}

func (s *analyzerService) Close() {
	s.client.Close()
}
