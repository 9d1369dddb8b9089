package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xelth-com/protocolos/internal/importer"
)

type fakeGenerator struct {
	answer string
	err    error
	prompt string
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func TestSuggestFiltersAnswer(t *testing.T) {
	gen := &fakeGenerator{answer: "```json\n" + `{
		"Ponto de Venda": "label",
		"Região": "district",
		"Inventado": "code",
		"Telefone": "phone"
	}` + "\n```"}
	a := NewHeaderAdvisor(gen, nil)

	got, err := a.Suggest(context.Background(), importer.PdvJob,
		[]string{"Ponto de Venda", "Região", "Telefone"},
		[]string{importer.FieldCode},
		[][]string{{"1", "Mercado", "Centro", "9999"}})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	want := []Suggestion{{"Ponto de Venda", "label"}, {"Região", "district"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("suggestions (-want +got):\n%s", diff)
	}
	if strings.Contains(gen.prompt, "\ncode\n") {
		t.Error("already mapped fields should not be offered")
	}
}

func TestSuggestNothingToAsk(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("should not be called")}
	a := NewHeaderAdvisor(gen, nil)
	got, err := a.Suggest(context.Background(), importer.ProductJob, nil, nil, nil)
	if err != nil || got != nil {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestSuggestInvalidJSON(t *testing.T) {
	a := NewHeaderAdvisor(&fakeGenerator{answer: "não sei"}, nil)
	if _, err := a.Suggest(context.Background(), importer.ProductJob, []string{"X"}, nil, nil); err == nil {
		t.Fatal("expected error for non-JSON answer")
	}
}
