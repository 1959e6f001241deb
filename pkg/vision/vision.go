// Package vision recognises objects in field photographs with a multimodal
// model and falls back to a colour analysis when the model sees nothing.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/pinewilt/kgcurate/backend/pkg/ai"
	"github.com/pinewilt/kgcurate/backend/pkg/logger"
)

// Variant names the recognition backend.
type Variant string

// ErrEmptyImage is returned for an image without data.
var ErrEmptyImage = errors.New("empty image")

const (
	VariantCloud Variant = "cloud"
	VariantLocal Variant = "local"
)

// ParseVariant maps a configuration value to a Variant, defaulting to cloud.
func ParseVariant(s string) Variant {
	if strings.EqualFold(strings.TrimSpace(s), string(VariantLocal)) {
		return VariantLocal
	}
	return VariantCloud
}

// Detection is one recognised object.
type Detection struct {
	Name        string  `json:"name" jsonschema:"required"`
	Confidence  float64 `json:"confidence" jsonschema:"required,minimum=0,maximum=1"`
	Category    string  `json:"category" jsonschema:"required"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
}

// Analysis is the result of one recognition.
type Analysis struct {
	Variant    Variant        `json:"variant"`
	Objects    []Detection    `json:"objects"`
	Categories map[string]int `json:"categories"`
	Total      int            `json:"total"`
	// Fallback is true when Objects came from the colour analysis.
	Fallback bool `json:"fallback"`
}

// Recognizer turns an image into detections.
type Recognizer interface {
	Recognize(ctx context.Context, image ai.Image) (Analysis, error)
}

type visionResponse struct {
	Objects []Detection `json:"objects" jsonschema:"required"`
}

// ModelRecognizer asks a vision model for detections. A nil client is
// allowed and always yields the colour fallback.
type ModelRecognizer struct {
	variant Variant
	client  ai.VisionClient
	model   string
	prompt  string
}

// NewModelRecognizer creates a recognizer for variant over client. An empty
// model keeps the client's configured image model.
func NewModelRecognizer(variant Variant, client ai.VisionClient, model string) *ModelRecognizer {
	return &ModelRecognizer{
		variant: variant,
		client:  client,
		model:   model,
		prompt:  buildPrompt(),
	}
}

func buildPrompt() string {
	schema, err := json.Marshal(ai.GenerateSchema(visionResponse{}))
	if err != nil {
		return ai.VisionPrompt
	}
	return ai.VisionPrompt + "\n\nJSON Schema:\n" + string(schema)
}

func (r *ModelRecognizer) Recognize(ctx context.Context, image ai.Image) (Analysis, error) {
	if len(image.Data) == 0 {
		return Analysis{}, ErrEmptyImage
	}

	var objects []Detection
	if r.client != nil {
		opts := []ai.GenerateOption{ai.WithMaxTokens(1024)}
		if r.model != "" {
			opts = append(opts, ai.WithModel(r.model))
		}
		answer, err := r.client.GenerateImageDescription(ctx, r.prompt, image, opts...)
		if err != nil {
			if ctx.Err() != nil {
				return Analysis{}, ctx.Err()
			}
			logger.Warn("[Vision] model request failed, using colour analysis",
				"variant", r.variant, "err", err)
		} else {
			objects = ParseDetections(answer)
		}
	}

	fallback := len(objects) == 0
	if fallback {
		logger.Debug("[Vision] no detections, analysing colours", "variant", r.variant)
		objects = ColourAnalysis(image.Data)
	}

	return newAnalysis(r.variant, objects, fallback), nil
}

func newAnalysis(variant Variant, objects []Detection, fallback bool) Analysis {
	slices.SortStableFunc(objects, func(a, b Detection) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		}
		return 0
	})

	counts := make(map[string]int)
	for _, o := range objects {
		counts[o.Category]++
	}
	return Analysis{
		Variant:    variant,
		Objects:    objects,
		Categories: counts,
		Total:      len(objects),
		Fallback:   fallback,
	}
}
