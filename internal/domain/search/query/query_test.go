package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/retriever/internal/domain"
	"github.com/kailas-cloud/retriever/internal/domain/search/filter"
)

func TestNew_DefaultsAndClampsK(t *testing.T) {
	cases := []struct {
		name string
		k    int
		want int
	}{
		{"zero defaults", 0, DefaultK},
		{"negative defaults", -5, DefaultK},
		{"in range kept", 25, 25},
		{"over max clamped", 500, MaxK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := New("hello", nil, filter.Filters{}, tc.k)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.K() != tc.want {
				t.Errorf("K() = %d, want %d", q.K(), tc.want)
			}
		})
	}
}

func TestNew_RequiresTextOrEmbedding(t *testing.T) {
	if _, err := New("", nil, filter.Filters{}, 10); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
	if _, err := New("   ", nil, filter.Filters{}, 10); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("whitespace-only text: expected ErrInvalidQuery, got %v", err)
	}

	// Embedding-only queries are fine.
	q, err := New("", []float32{0.1, 0.2}, filter.Filters{}, 10)
	if err != nil {
		t.Fatalf("embedding-only query: %v", err)
	}
	if q.Text() != "" {
		t.Errorf("Text() = %q", q.Text())
	}
}

func TestNew_RejectsOversizedText(t *testing.T) {
	_, err := New(strings.Repeat("a", MaxTextLength+1), nil, filter.Filters{}, 10)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestNew_TrimsText(t *testing.T) {
	q, err := New("  hello  ", nil, filter.Filters{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Text() != "hello" {
		t.Errorf("Text() = %q", q.Text())
	}
}

func TestNormalized(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Hello World", "hello world"},
		{"hello\t\n  WORLD", "hello world"},
		{"already normal", "already normal"},
	}
	for _, tc := range cases {
		q, err := New(tc.text, nil, filter.Filters{}, 10)
		if err != nil {
			t.Fatalf("New(%q): %v", tc.text, err)
		}
		if got := q.Normalized(); got != tc.want {
			t.Errorf("Normalized(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestNormalized_EquivalentQueriesShareForm(t *testing.T) {
	a, _ := New("Machine   Learning", nil, filter.Filters{}, 10)
	b, _ := New("machine learning", nil, filter.Filters{}, 10)
	if a.Normalized() != b.Normalized() {
		t.Errorf("%q != %q", a.Normalized(), b.Normalized())
	}
}

func TestWithEmbedding_DoesNotMutate(t *testing.T) {
	q, _ := New("hello", nil, filter.Filters{}, 10)
	embedded := q.WithEmbedding([]float32{0.1, 0.2})

	if q.Embedding() != nil {
		t.Error("original query mutated")
	}
	if len(embedded.Embedding()) != 2 {
		t.Errorf("Embedding() = %v", embedded.Embedding())
	}
	if embedded.Text() != "hello" || embedded.K() != q.K() {
		t.Error("copy must preserve text and K")
	}
}
