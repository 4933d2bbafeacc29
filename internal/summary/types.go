package summary

// Summary is the structured result: a list of sections, each with a
// header and exactly two bullet points.
type Summary struct {
	Sections []Section `json:"sections"`
}

type Section struct {
	Header  string   `json:"header"`
	Bullets []string `json:"bullets"`
}

// generateRequest is the generateContent request payload.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"response_mime_type"`
	ResponseSchema   map[string]any `json:"response_schema"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *apiError) Error() string {
	return e.Message
}

// responseSchema constrains the model output to the Summary shape.
var responseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"sections": map[string]any{
			"type":        "array",
			"description": "A list of sections, each with a header and two bullet points.",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"header": map[string]any{
						"type":        "string",
						"description": "A header for the following two bullet points.",
					},
					"bullets": map[string]any{
						"type":        "array",
						"description": "A list of two bullet points under the header.",
						"items": map[string]any{
							"type": "string",
						},
					},
				},
				"required": []string{"header", "bullets"},
			},
		},
	},
	"required": []string{"sections"},
}
