package types

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// NormalizeRequest is the body of POST /prompt/normalize.
type NormalizeRequest struct {
	// example: a (cat) and {dog}
	Prompt string `json:"prompt" example:"a (cat) and {dog}"`
}

// NormalizeResponse carries the canonical attention syntax of a prompt.
type NormalizeResponse struct {
	// example: a (cat)+ and (dog)-
	Prompt string `json:"prompt" example:"a (cat)+ and (dog)-"`
}

// PrepareRequest is the body of POST /prompt/prepare.
type PrepareRequest struct {
	// Positive prompt.
	// example: a photo of <my-style> (cat)
	Prompt string `json:"prompt" example:"a photo of <my-style> (cat)"`
	// Optional negative prompt.
	// example: blurry
	Negative string `json:"negative,omitempty" example:"blurry"`
}

// PrepareResponse is the prompt as handed to the generation backend.
type PrepareResponse struct {
	// Combined, normalized prompt with embedding file names replaced by triggers.
	// example: a photo of <mystyle> (cat)+ [blurry]
	Prompt string `json:"prompt" example:"a photo of <mystyle> (cat)+ [blurry]"`
	// Embedding tokens that could not be mapped to a trigger.
	Incompatible []string `json:"incompatible,omitempty"`
}

// IngestRequest is the body of POST /triggers.
type IngestRequest struct {
	// A raw line printed by the generation backend.
	Line string `json:"line"`
}

// TriggersResponse lists the current embedding trigger table.
type TriggersResponse struct {
	// Map of embedding file stem to trigger token.
	Triggers map[string]string `json:"triggers"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Identifier of the running session.
	SessionID string `json:"session_id"`
	// Generation backend the model lists are filtered for.
	// example: invokeai
	Implementation string `json:"implementation" example:"invokeai"`
	// Optional capabilities of the backend; empty when not bound to one.
	Features []string `json:"features,omitempty"`
	// Root directories scanned for models.
	ModelDirs []string `json:"model_dirs"`
	// Number of normal models found at the last scan.
	Models int `json:"models"`
	// Number of VAE models found at the last scan.
	Vaes int `json:"vaes"`
	// Number of embedding files available.
	Embeddings int `json:"embeddings"`
	// Entries in the embedding trigger table.
	Triggers int `json:"triggers"`
	// Fingerprint of the current model set.
	ModelsHash string `json:"models_hash"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Last scan time in unix seconds.
	LastScanUnix int64 `json:"last_scan_unix"`
}

// IngestResponse reports the trigger table after ingesting backend output.
type IngestResponse struct {
	// Entries loaded by the request; 0 when no line carried a trigger list.
	Loaded int `json:"loaded"`
	// Map of embedding file stem to trigger token.
	Triggers map[string]string `json:"triggers"`
}
