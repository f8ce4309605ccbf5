package api

type HealthResponse struct {
	Status string `json:"status"`
}

type ModelInfo struct {
	Object            string   `json:"object"`
	RunID             string   `json:"run_id,omitempty"`
	Version           string   `json:"version,omitempty"`
	VocabSize         int      `json:"vocab_size"`
	WordDim           int      `json:"word_dim"`
	ContextSize       int      `json:"context_size"`
	Params            int      `json:"params"`
	Seed              int64    `json:"seed"`
	BestDevPerplexity *float64 `json:"best_dev_ppl,omitempty"`
	TestPerplexity    *float64 `json:"test_ppl,omitempty"`
}

// PredictRequest asks for the most probable next words. Context holds the
// preceding words, either as a single whitespace-separated string or as a
// list of tokens; only the last context-size words are used.
type PredictRequest struct {
	Context any  `json:"context"`
	TopK    *int `json:"top_k,omitempty"`
}

type Prediction struct {
	Token string  `json:"token"`
	ID    int     `json:"id"`
	Prob  float64 `json:"prob"`
}

type PredictResponse struct {
	ID          string       `json:"id"`
	Object      string       `json:"object"`
	Context     []string     `json:"context"`
	Predictions []Prediction `json:"predictions"`
}

// ScoreRequest asks for the probability of a sentence under the model.
type ScoreRequest struct {
	Sentence any `json:"sentence"`
}

type TokenScore struct {
	Token   string  `json:"token"`
	Known   bool    `json:"known"`
	LogProb float64 `json:"logp"`
}

type ScoreResponse struct {
	ID         string       `json:"id"`
	Object     string       `json:"object"`
	Tokens     []TokenScore `json:"tokens"`
	LogProb    float64      `json:"logp"`
	Bits       float64      `json:"bits_per_word"`
	Perplexity float64      `json:"perplexity"`
	Unknown    int          `json:"unknown_words"`
}

// GenerateRequest samples a continuation of Prefix. Unset sampling fields
// fall back to the server defaults.
type GenerateRequest struct {
	Prefix      any      `json:"prefix,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MinP        *float64 `json:"min_p,omitempty"`
	Seed        *int64   `json:"seed,omitempty"`
}

type GenerateResponse struct {
	ID           string   `json:"id"`
	Object       string   `json:"object"`
	CreatedAt    int64    `json:"created_at"`
	Prefix       []string `json:"prefix"`
	Tokens       []string `json:"tokens"`
	Text         string   `json:"text"`
	FinishReason string   `json:"finish_reason"`
	Seed         int64    `json:"seed"`
}

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}
