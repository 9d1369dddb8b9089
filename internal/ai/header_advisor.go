package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/xelth-com/protocolos/internal/importer"
	"github.com/xelth-com/protocolos/internal/utils"
)

// Generator produces text for a prompt. GeminiClient implements it.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Suggestion proposes that Header be read as Field. Suggestions are shown to
// the operator and never applied automatically.
type Suggestion struct {
	Header string `json:"header"`
	Field  string `json:"field"`
}

// HeaderAdvisor asks a model how to map headers the synonym table missed.
type HeaderAdvisor struct {
	gen    Generator
	logger *zap.Logger
}

func NewHeaderAdvisor(gen Generator, logger *zap.Logger) *HeaderAdvisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeaderAdvisor{gen: gen, logger: logger}
}

// Suggest returns mappings for unmatched headers onto fields of job that are
// still unmapped. Answers naming unknown headers or fields are dropped.
func (a *HeaderAdvisor) Suggest(ctx context.Context, job importer.Job, unmatched []string, mappedFields []string, sample [][]string) ([]Suggestion, error) {
	if len(unmatched) == 0 {
		return nil, nil
	}

	open := make(map[string]bool)
	for _, f := range job.Fields {
		open[f] = true
	}
	for _, f := range mappedFields {
		delete(open, f)
	}
	if len(open) == 0 {
		return nil, nil
	}
	fields := make([]string, 0, len(open))
	for f := range open {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	prompt := fmt.Sprintf(headerMappingPrompt,
		strings.Join(fields, "\n"),
		strings.Join(unmatched, "\n"),
		formatSample(sample))
	raw, err := a.gen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var answer map[string]string
	if err := json.Unmarshal([]byte(utils.SanitizeJSON(raw)), &answer); err != nil {
		a.logger.Warn("header advisor returned invalid JSON", zap.String("raw", raw), zap.Error(err))
		return nil, fmt.Errorf("unreadable model answer: %w", err)
	}

	known := make(map[string]bool, len(unmatched))
	for _, h := range unmatched {
		known[h] = true
	}
	taken := make(map[string]bool)
	var out []Suggestion
	for _, h := range unmatched {
		field, ok := answer[h]
		if !ok || !known[h] || !open[field] || taken[field] {
			continue
		}
		taken[field] = true
		out = append(out, Suggestion{Header: h, Field: field})
	}
	return out, nil
}

func formatSample(rows [][]string) string {
	const maxRows = 3
	var b strings.Builder
	for i, r := range rows {
		if i == maxRows {
			break
		}
		b.WriteString(strings.Join(r, " | "))
		b.WriteByte('\n')
	}
	return b.String()
}
