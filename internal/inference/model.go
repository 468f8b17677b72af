package inference

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ytget/phin/internal/common"
	"github.com/ytget/phin/internal/logdomain"
	"github.com/ytget/phin/internal/platform"
)

// Sampling settings per operation
var (
	AnalyzeSampling    = Request{MaxTokens: 512, Temperature: 0.7, TopP: 0.9}
	TranscribeSampling = Request{MaxTokens: 1024, Temperature: 0.5, TopP: 0.8}
	DescribeSampling   = Request{MaxTokens: 768, Temperature: 0.8, TopP: 0.9}
)

// Fixed result attributes
const (
	AnalysisStyle           = "phin_analysis"
	AnalysisConfidence      = 0.85
	NotationSystemThai      = "thai"
	TranscriptionConfidence = 0.82
)

var (
	// ErrNoAudio is returned when the audio file to analyze does not exist.
	ErrNoAudio = errors.New("audio file not found")

	// ErrInvalidTempo is returned for a non-positive tempo.
	ErrInvalidTempo = errors.New("tempo must be positive")

	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// Analysis is the result of Analyze.
type Analysis struct {
	AudioPath  string  `json:"audio_path" yaml:"audio_path"`
	Analysis   string  `json:"analysis" yaml:"analysis"`
	Style      string  `json:"style" yaml:"style"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Transcription is the result of Transcribe.
type Transcription struct {
	AudioPath      string  `json:"audio_path" yaml:"audio_path"`
	Transcription  string  `json:"transcription" yaml:"transcription"`
	NotationSystem string  `json:"notation_system" yaml:"notation_system"`
	Confidence     float64 `json:"confidence" yaml:"confidence"`
}

// Model wraps a Generator with the phin prompts.
type Model struct {
	gen Generator
	log *log.Logger
}

// New creates a Model on top of gen.
func New(gen Generator) (*Model, error) {
	l, err := common.GetLogger(logdomain.Inference)
	if err != nil {
		return nil, err
	}
	return &Model{gen: gen, log: l}, nil
}

// Analyze asks the model to describe the recording at audioPath.
func (m *Model) Analyze(ctx context.Context, audioPath string) (*Analysis, error) {
	if err := checkAudio(audioPath); err != nil {
		return nil, err
	}

	text, err := m.generate(ctx, AnalyzeSampling, fmt.Sprintf("Analyze this Thai phin music: %s", audioPath))
	if err != nil {
		return nil, err
	}

	return &Analysis{
		AudioPath:  audioPath,
		Analysis:   text,
		Style:      AnalysisStyle,
		Confidence: AnalysisConfidence,
	}, nil
}

// Transcribe asks the model to write the recording at audioPath down in
// Thai notation.
func (m *Model) Transcribe(ctx context.Context, audioPath string) (*Transcription, error) {
	if err := checkAudio(audioPath); err != nil {
		return nil, err
	}

	text, err := m.generate(ctx, TranscribeSampling,
		fmt.Sprintf("Transcribe this phin music to Thai notation: %s", audioPath))
	if err != nil {
		return nil, err
	}

	return &Transcription{
		AudioPath:      audioPath,
		Transcription:  text,
		NotationSystem: NotationSystemThai,
		Confidence:     TranscriptionConfidence,
	}, nil
}

// Describe asks the model for a description of a style as played in region
// at the given tempo.
func (m *Model) Describe(ctx context.Context, style, region string, tempo int) (string, error) {
	if tempo <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidTempo, tempo)
	}

	prompt := fmt.Sprintf("Generate a detailed description of %s style phin music from %s Thailand, "+
		"with tempo %d BPM. Include cultural context, musical characteristics, "+
		"and technical analysis suitable for music education.",
		style, region, tempo)

	return m.generate(ctx, DescribeSampling, prompt)
}

func (m *Model) generate(ctx context.Context, sampling Request, prompt string) (string, error) {
	req := sampling
	req.Prompt = prompt

	m.log.Printf("[DEBUG] Prompt (max %d tokens, t=%.1f, p=%.1f): %s\n",
		req.MaxTokens, req.Temperature, req.TopP, prompt)

	text, err := m.gen.Generate(ctx, req)
	if err != nil {
		m.log.Printf("[ERROR] Generation failed: %s\n", err.Error())
		return "", err
	} else if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}

func checkAudio(path string) error {
	exists, err := platform.FileExists(path)
	if err != nil {
		return fmt.Errorf("cannot check %s: %w", path, err)
	} else if !exists {
		return fmt.Errorf("%w: %s", ErrNoAudio, path)
	}
	return nil
}
