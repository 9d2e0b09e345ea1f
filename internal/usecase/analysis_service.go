package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/allergenscan/backend/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"
)

const (
	defaultAnalysisTimeout = 30 * time.Second
	maxAllowedToolRounds   = 2
)

// AnalysisServiceConfig holds configuration for the analysis engine
type AnalysisServiceConfig struct {
	Timeout       time.Duration
	MaxToolRounds int
}

// AnalysisService turns ingredient text and an allergen profile into a verdict
// using a reasoning backend and the ingredient lookup tool.
type AnalysisService struct {
	reasoner      domain.Reasoner
	tool          *IngredientTool
	validate      *validator.Validate
	timeout       time.Duration
	maxToolRounds int
	logger        *slog.Logger

	// inFlight rejects a second analysis while one is outstanding
	inFlight atomic.Bool
}

// verdict is the raw backend answer. Pointer fields distinguish a missing
// boolean from false.
type verdict struct {
	ContainsAllergens *bool    `json:"containsAllergens" validate:"required"`
	SafeToConsume     *bool    `json:"safeToConsume" validate:"required"`
	AllergensList     []string `json:"allergensList" validate:"required"`
	Reasoning         string   `json:"reasoning" validate:"required,notblank"`
}

// NewAnalysisService creates the analysis engine
func NewAnalysisService(
	reasoner domain.Reasoner,
	tool *IngredientTool,
	config AnalysisServiceConfig,
	logger *slog.Logger,
) *AnalysisService {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultAnalysisTimeout
	}

	rounds := config.MaxToolRounds
	if rounds < 0 {
		rounds = 0
	}
	if rounds > maxAllowedToolRounds {
		rounds = maxAllowedToolRounds
	}

	return &AnalysisService{
		reasoner:      reasoner,
		tool:          tool,
		validate:      newValidator(),
		timeout:       timeout,
		maxToolRounds: rounds,
		logger:        logger,
	}
}

// newValidator reports json field names and knows about notblank
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("registering notblank validation: %v", err))
	}
	return v
}

// Analyze runs one analysis. Empty ingredients are rejected before the backend
// is called. Any backend failure or malformed answer is returned as an
// *domain.AnalysisError, never as a default verdict.
func (s *AnalysisService) Analyze(ctx context.Context, input domain.AnalysisInput) (*domain.AnalysisResult, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, domain.ErrAnalysisInFlight
	}
	defer s.inFlight.Store(false)

	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, rounds, err := s.converse(runCtx, input)
	if err != nil {
		return nil, s.classifyBackendError(ctx, runCtx, err)
	}

	// The caller went away while the backend was answering
	if ctx.Err() != nil {
		s.logger.Debug("Discarding analysis result for cancelled request", "barcode", input.Barcode)
		return nil, ctx.Err()
	}

	v, err := s.parseVerdict(reply.Text)
	if err != nil {
		s.logger.Warn("Malformed analysis output",
			"barcode", input.Barcode,
			"error", err,
			"stop_reason", reply.StopReason)
		return nil, &domain.AnalysisError{Reason: domain.AnalysisReasonMalformed, Err: err}
	}

	result := repairVerdict(v)
	result.AnalysisID = uuid.NewString()
	result.ToolRounds = rounds

	if result.Repaired {
		s.logger.Warn("Analysis flags disagreed with detected allergens, re-derived from list",
			"analysis_id", result.AnalysisID,
			"raw_contains_allergens", *v.ContainsAllergens,
			"raw_safe_to_consume", *v.SafeToConsume,
			"allergens", result.AllergensList)
	}

	s.logger.Info("Allergen analysis completed",
		"analysis_id", result.AnalysisID,
		"barcode", input.Barcode,
		"contains_allergens", result.ContainsAllergens,
		"allergens", result.AllergensList,
		"tool_rounds", rounds,
		"duration", time.Since(start))

	return result, nil
}

// InFlight reports whether an analysis is currently running
func (s *AnalysisService) InFlight() bool {
	return s.inFlight.Load()
}

func (s *AnalysisService) validateInput(input domain.AnalysisInput) error {
	if strings.TrimSpace(input.Ingredients) == "" {
		return &domain.ValidationError{
			Field:   "ingredients",
			Message: "ingredients are required for an allergen analysis",
			Err:     domain.ErrIngredientsMissing,
		}
	}

	if err := s.validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return domain.NewValidationError(fe.Field(), fmt.Sprintf("failed %q validation", fe.Tag()))
		}
		return domain.NewValidationError("", err.Error())
	}
	return nil
}

// converse runs the request/tool loop. Tool rounds are capped; once the cap is
// reached the backend is asked to answer without calling tools.
func (s *AnalysisService) converse(ctx context.Context, input domain.AnalysisInput) (*domain.ReasoningReply, int, error) {
	req := &domain.ReasoningRequest{
		System: analysisSystemPrompt,
		Messages: []domain.ReasoningMessage{
			{Role: domain.RoleUser, Text: buildAnalysisPrompt(input, ParseIngredients(input.Ingredients))},
		},
	}
	if s.maxToolRounds > 0 {
		req.Tools = []domain.ToolSpec{s.tool.Spec()}
	}

	rounds := 0
	for {
		reply, err := s.reasoner.Complete(ctx, req)
		if err != nil {
			return nil, rounds, err
		}
		if len(reply.ToolCalls) == 0 {
			return reply, rounds, nil
		}
		if rounds >= s.maxToolRounds {
			return nil, rounds, &domain.AnalysisError{
				Reason: domain.AnalysisReasonMalformed,
				Err:    fmt.Errorf("backend requested tools after %d rounds", rounds),
			}
		}

		rounds++
		results := make([]domain.ToolResult, 0, len(reply.ToolCalls))
		for _, call := range reply.ToolCalls {
			if call.Name != IngredientToolName {
				results = append(results, domain.ToolResult{
					CallID:  call.ID,
					Content: fmt.Sprintf("unknown tool %q", call.Name),
					IsError: true,
				})
				continue
			}
			results = append(results, s.tool.Execute(call))
		}

		s.logger.Debug("Ingredient tool round",
			"round", rounds,
			"calls", len(reply.ToolCalls))

		req.Messages = append(req.Messages,
			domain.ReasoningMessage{Role: domain.RoleAssistant, Text: reply.Text, ToolCalls: reply.ToolCalls},
			domain.ReasoningMessage{Role: domain.RoleUser, ToolResults: results},
		)
		if rounds >= s.maxToolRounds {
			req.DisableTools = true
		}
	}
}

// classifyBackendError maps a failed conversation onto the error the caller sees
func (s *AnalysisService) classifyBackendError(ctx, runCtx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var analysisErr *domain.AnalysisError
	if errors.As(err, &analysisErr) {
		return analysisErr
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		s.logger.Warn("Allergen analysis timed out", "timeout", s.timeout)
		return &domain.AnalysisError{Reason: domain.AnalysisReasonTimeout, Err: err}
	}

	s.logger.Error("Reasoning backend failed", "error", err)
	return &domain.AnalysisError{Reason: domain.AnalysisReasonBackend, Err: err}
}

// parseVerdict extracts and validates the JSON object in the backend answer
func (s *AnalysisService) parseVerdict(text string) (*verdict, error) {
	payload := extractJSONObject(text)
	if payload == "" {
		return nil, errors.New("no JSON object in response")
	}

	var v verdict
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if err := s.validate.Struct(&v); err != nil {
		return nil, fmt.Errorf("verdict schema: %w", err)
	}
	return &v, nil
}

// extractJSONObject strips markdown code fences and any prose around the
// outermost JSON object.
func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

// repairVerdict derives the flags from the detected list, which is treated as
// ground truth. Blank and duplicate entries are dropped.
func repairVerdict(v *verdict) *domain.AnalysisResult {
	seen := make(map[string]bool)
	list := make([]string, 0, len(v.AllergensList))
	for _, name := range v.AllergensList {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		list = append(list, name)
	}

	contains := len(list) > 0
	safe := !contains

	return &domain.AnalysisResult{
		ContainsAllergens: contains,
		SafeToConsume:     safe,
		AllergensList:     list,
		Reasoning:         strings.TrimSpace(v.Reasoning),
		Repaired:          *v.ContainsAllergens != contains || *v.SafeToConsume != safe,
	}
}
