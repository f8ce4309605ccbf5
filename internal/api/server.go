// Package api serves a trained log-bilinear language model over HTTP.
package api

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/lbl/internal/dataset"
	"github.com/samcharles93/lbl/internal/lbl"
	"github.com/samcharles93/lbl/internal/logger"
	"github.com/samcharles93/lbl/internal/logits"
	"github.com/samcharles93/lbl/internal/vocab"
)

const (
	defaultTopK      = 10
	defaultMaxTokens = 50
	maxTopK          = 1000
	maxTokensLimit   = 1024
)

// Config wires a Server. Model and Dictionary are required and must agree
// on the vocabulary size.
type Config struct {
	Model      *lbl.Model
	Dictionary *vocab.Dictionary
	// Info is returned by GET /v1/model; the shape fields are filled in
	// from Model.
	Info ModelInfo
	// Sampler holds the default sampling settings of /v1/generate.
	Sampler   logits.SamplerConfig
	MaxTokens int
	Store     *GenerationStore
	Log       logger.Logger
}

// Server exposes prediction, scoring and generation endpoints. The model is
// only read after construction, so handlers may run concurrently.
type Server struct {
	model     *lbl.Model
	dict      *vocab.Dictionary
	info      ModelInfo
	sampler   logits.SamplerConfig
	maxTokens int
	store     *GenerationStore
	log       logger.Logger
	clock     func() time.Time

	mu    sync.Mutex
	seeds *rand.Rand
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Model == nil || cfg.Dictionary == nil {
		return nil, errors.New("api: model and dictionary are required")
	}
	if cfg.Model.VocabSize != cfg.Dictionary.Size() {
		return nil, fmt.Errorf("api: model vocabulary %d does not match dictionary %d", cfg.Model.VocabSize, cfg.Dictionary.Size())
	}
	if cfg.Store == nil {
		cfg.Store = NewGenerationStore(0)
	}
	if cfg.Log == nil {
		cfg.Log = logger.Discard()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	info := cfg.Info
	info.Object = "model"
	info.VocabSize = cfg.Model.VocabSize
	info.WordDim = cfg.Model.Dim
	info.ContextSize = cfg.Model.ContextSize
	info.Params = cfg.Model.NumParams()

	seed := uint64(cfg.Sampler.Seed)
	return &Server{
		model:     cfg.Model,
		dict:      cfg.Dictionary,
		info:      info,
		sampler:   cfg.Sampler,
		maxTokens: min(cfg.MaxTokens, maxTokensLimit),
		store:     cfg.Store,
		log:       cfg.Log,
		clock:     time.Now,
		seeds:     rand.New(rand.NewPCG(seed, ^seed)),
	}, nil
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/model", s.handleModel)
	e.POST("/v1/predict", s.handlePredict)
	e.POST("/v1/score", s.handleScore)
	e.POST("/v1/generate", s.handleGenerate)
	e.GET("/v1/generations/:id", s.handleGetGeneration)
	e.DELETE("/v1/generations/:id", s.handleDeleteGeneration)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleModel(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.info)
}

func (s *Server) handlePredict(c *echo.Context) error {
	req, err := decodeJSON[PredictRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err)
	}
	words, err := tokensOf("context", req.Context)
	if err != nil {
		return writeBadRequest(c, err)
	}
	k := defaultTopK
	if req.TopK != nil {
		if *req.TopK <= 0 || *req.TopK > maxTopK {
			return writeBadRequest(c, newInvalidRequest("top_k", fmt.Sprintf("top_k must be in [1, %d]", maxTopK)))
		}
		k = *req.TopK
	}

	ctx := s.window(words)
	cands, err := s.model.Rank(ctx, k)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
	resp := PredictResponse{
		ID:          newResponseID("pred"),
		Object:      "prediction",
		Context:     s.dict.Tokens(ctx),
		Predictions: make([]Prediction, len(cands)),
	}
	for i, cand := range cands {
		resp.Predictions[i] = Prediction{Token: s.dict.Token(cand.ID), ID: cand.ID, Prob: cand.Prob}
	}
	return c.JSON(http.StatusOK, resp)
}

// window returns the model context ending with words: the last
// ContextSize ids, left-padded with the sentence-start id.
func (s *Server) window(words []string) []int {
	n := s.model.ContextSize
	ctx := make([]int, n)
	start := s.dict.StartID()
	for i := range ctx {
		ctx[i] = start
	}
	ids := s.dict.IDs(words)
	if len(ids) > n {
		ids = ids[len(ids)-n:]
	}
	copy(ctx[n-len(ids):], ids)
	return ctx
}

func (s *Server) handleScore(c *echo.Context) error {
	req, err := decodeJSON[ScoreRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err)
	}
	words, err := tokensOf("sentence", req.Sentence)
	if err != nil {
		return writeBadRequest(c, err)
	}
	if len(words) == 0 {
		return writeBadRequest(c, newInvalidRequest("sentence", "sentence must contain at least one word"))
	}

	insts := dataset.SentenceInstances(words, s.dict, s.model.ContextSize)
	contexts := make([][]int, len(insts))
	for i, inst := range insts {
		contexts[i] = inst.Context
	}
	probs, err := s.model.Forward(contexts)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}

	resp := ScoreResponse{
		ID:     newResponseID("score"),
		Object: "score",
		Tokens: make([]TokenScore, len(insts)),
	}
	for i, inst := range insts {
		token := vocab.End
		known := true
		if i < len(words) {
			token = words[i]
			known = s.dict.Contains(token)
		}
		if !known {
			resp.Unknown++
		}
		lp := math.Log2(probs.At(i, inst.Target))
		resp.Tokens[i] = TokenScore{Token: token, Known: known, LogProb: lp}
		resp.LogProb += lp
	}
	resp.Bits = -resp.LogProb / float64(len(insts))
	resp.Perplexity = lbl.Perplexity(resp.Bits)
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGenerate(c *echo.Context) error {
	req, err := decodeJSON[GenerateRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err)
	}
	prefix, err := tokensOf("prefix", req.Prefix)
	if err != nil {
		return writeBadRequest(c, err)
	}
	cfg, maxTokens, err := s.samplerConfig(req)
	if err != nil {
		return writeBadRequest(c, err)
	}

	sampler := logits.NewSampler(cfg)
	ids, err := s.model.Generate(sampler, s.dict.IDs(prefix), s.dict.StartID(), s.dict.EndID(), maxTokens)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
	tokens := s.dict.Tokens(ids)
	finish := "stop"
	if len(ids) >= maxTokens {
		finish = "length"
	}
	resp := GenerateResponse{
		ID:           newResponseID("gen"),
		Object:       "generation",
		CreatedAt:    s.clock().Unix(),
		Prefix:       prefix,
		Tokens:       tokens,
		Text:         strings.Join(tokens, " "),
		FinishReason: finish,
		Seed:         cfg.Seed,
	}
	if resp.Prefix == nil {
		resp.Prefix = []string{}
	}
	s.store.Put(resp)
	s.log.Debug("generated", "id", resp.ID, "tokens", len(tokens), "finish_reason", finish)
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) samplerConfig(req GenerateRequest) (logits.SamplerConfig, int, error) {
	cfg := s.sampler
	cfg.Exclude = []int{vocab.UnknownID, s.dict.StartID()}

	maxTokens := s.maxTokens
	if req.MaxTokens != nil {
		if *req.MaxTokens <= 0 || *req.MaxTokens > maxTokensLimit {
			return cfg, 0, newInvalidRequest("max_tokens", fmt.Sprintf("max_tokens must be in [1, %d]", maxTokensLimit))
		}
		maxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		if *req.Temperature < 0 {
			return cfg, 0, newInvalidRequest("temperature", "temperature must not be negative")
		}
		cfg.Temperature = *req.Temperature
	}
	if req.TopK != nil {
		if *req.TopK < 0 {
			return cfg, 0, newInvalidRequest("top_k", "top_k must not be negative")
		}
		cfg.TopK = *req.TopK
	}
	if req.TopP != nil {
		if *req.TopP <= 0 || *req.TopP > 1 {
			return cfg, 0, newInvalidRequest("top_p", "top_p must be in (0, 1]")
		}
		cfg.TopP = *req.TopP
	}
	if req.MinP != nil {
		if *req.MinP < 0 || *req.MinP >= 1 {
			return cfg, 0, newInvalidRequest("min_p", "min_p must be in [0, 1)")
		}
		cfg.MinP = *req.MinP
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	} else {
		s.mu.Lock()
		cfg.Seed = s.seeds.Int64()
		s.mu.Unlock()
	}
	return cfg, maxTokens, nil
}

func (s *Server) handleGetGeneration(c *echo.Context) error {
	id := c.Param("id")
	resp, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, "generation not found")
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeleteGeneration(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, "generation not found")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"id":      id,
		"object":  "generation.deleted",
		"deleted": true,
	})
}
