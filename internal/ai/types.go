package ai

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	ResponseSchema   *schema `json:"responseSchema,omitempty"`
}

// schema is the OpenAPI subset accepted as a Gemini response schema
type schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Items       *schema            `json:"items,omitempty"`
	Properties  map[string]*schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

type generatedItem struct {
	Korean       string `json:"korean"`
	English      string `json:"english"`
	PartOfSpeech string `json:"partOfSpeech"`
	Example      string `json:"example"`
}

var itemListSchema = &schema{
	Type: "ARRAY",
	Items: &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			"korean":       {Type: "STRING", Description: "The Korean meaning of the word or sentence"},
			"english":      {Type: "STRING", Description: "The English word, phrase or sentence"},
			"partOfSpeech": {Type: "STRING", Description: "Part of speech (e.g. verb, noun) or pattern"},
			"example":      {Type: "STRING", Description: "A short simple example sentence in English"},
		},
		Required: []string{"korean", "english", "partOfSpeech", "example"},
	},
}
