package openai

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoImage is returned when a successful response carries no image in
// any known shape.
var ErrNoImage = errors.New("openai: no image found in response")

type imageDatum struct {
	URL           string `json:"url"`
	B64JSON       string `json:"b64_json"`
	RevisedPrompt string `json:"revised_prompt"`
}

type imagePayload struct {
	Data json.RawMessage `json:"data"`
	imageDatum
}

// extractImage normalizes the result of an image call. The API has
// returned several shapes over time: a data array of objects carrying
// either a URL or inline base64, a single data object, or those fields at
// the top level. Matchers run in that fixed order; base64 payloads become
// data URIs so every result is a dereferenceable location.
func extractImage(body []byte) (string, error) {
	var payload imagePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("openai: decode image response: %w", err)
	}

	if len(payload.Data) > 0 {
		var list []imageDatum
		if err := json.Unmarshal(payload.Data, &list); err == nil {
			for _, item := range list {
				if url := item.location(); url != "" {
					return url, nil
				}
			}
		} else {
			var single imageDatum
			if err := json.Unmarshal(payload.Data, &single); err == nil {
				if url := single.location(); url != "" {
					return url, nil
				}
			}
		}
	}

	if url := payload.imageDatum.location(); url != "" {
		return url, nil
	}

	return "", ErrNoImage
}

func (d imageDatum) location() string {
	if d.URL != "" {
		return d.URL
	}
	if d.B64JSON != "" {
		return "data:image/png;base64," + d.B64JSON
	}
	return ""
}
