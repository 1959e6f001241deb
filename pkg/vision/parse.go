package vision

import (
	"strconv"
	"strings"

	"github.com/pinewilt/kgcurate/backend/pkg/ai"
)

// ParseDetections reads model output as JSON objects or, failing that, as
// name|confidence|category|description|location lines. Every detection is
// normalised.
func ParseDetections(text string) []Detection {
	text = ai.StripCodeFence(text)
	if text == "" {
		return nil
	}

	var out []Detection
	if strings.Contains(text, "{") {
		var resp visionResponse
		if err := ai.UnmarshalFlexible(text, &resp); err == nil {
			out = resp.Objects
		}
	}
	if len(out) == 0 {
		out = parseLines(text)
	}

	kept := out[:0]
	for _, d := range out {
		d = Normalize(d)
		if d.Name != "" {
			kept = append(kept, d)
		}
	}
	return kept
}

func parseLines(text string) []Detection {
	var out []Detection
	for line := range strings.Lines(text) {
		parts := strings.Split(strings.TrimSpace(line), "|")
		if len(parts) < 3 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		conf, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			conf = 0.5
		}
		d := Detection{Name: parts[0], Confidence: conf, Category: parts[2], Location: "unknown"}
		if len(parts) > 3 {
			d.Description = parts[3]
		}
		if len(parts) > 4 && parts[4] != "" {
			d.Location = parts[4]
		}
		out = append(out, d)
	}
	return out
}
