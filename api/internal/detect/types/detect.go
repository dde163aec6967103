package types

// Classification is the verdict returned to callers.
type Classification string

const (
	ClassificationHuman       Classification = "HUMAN"
	ClassificationAIGenerated Classification = "AI_GENERATED"
)

// Status is the outcome of a detection call as seen by the client.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

const (
	DefaultLanguage       = "English"
	DefaultMIMEType       = "audio/mp3"
	DefaultClassification = ClassificationHuman
	DefaultConfidence     = 0.95
	DefaultExplanation    = "No explanation was provided by the analysis engine."
)

// DetectRequest is the cleaned, validated input for a single detection.
// Built by detect.Normalizer; never mutated afterwards.
type DetectRequest struct {
	AudioB64 string // base64 without data: prefix
	Audio    []byte // decoded AudioB64
	MIMEType string
	Language string
	LLMName  string // optional engine selector
}

// DetectResult is the body of a successful POST /detect.
// ArtifactsFound is deprecated and only emitted when the model filled it.
type DetectResult struct {
	Status          Status         `json:"status"`
	Language        string         `json:"language"`
	Classification  Classification `json:"classification"`
	ConfidenceScore float64        `json:"confidenceScore"`
	Explanation     string         `json:"explanation"`
	ArtifactsFound  []string       `json:"artifactsFound,omitempty"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}
