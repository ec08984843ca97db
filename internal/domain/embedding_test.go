package domain

import (
	"context"
	"errors"
	"testing"
)

type recordingEmbedder struct {
	lastTexts []string
	lastRole  Role
}

func (m *recordingEmbedder) Embed(_ context.Context, texts []string, role Role) ([][]float32, error) {
	m.lastTexts = texts
	m.lastRole = role
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

func TestPrefixEmbedder_DocumentRole(t *testing.T) {
	inner := &recordingEmbedder{}
	e := NewPrefixEmbedder(inner, "search_document: ", "search_query: ")

	if _, err := e.Embed(context.Background(), []string{"hello"}, RoleDocument); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.lastTexts[0] != "search_document: hello" {
		t.Errorf("wrong prefix applied: %q", inner.lastTexts[0])
	}
}

func TestPrefixEmbedder_QueryRole(t *testing.T) {
	inner := &recordingEmbedder{}
	e := NewPrefixEmbedder(inner, "search_document: ", "search_query: ")

	if _, err := e.Embed(context.Background(), []string{"hello"}, RoleQuery); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.lastTexts[0] != "search_query: hello" {
		t.Errorf("wrong prefix applied: %q", inner.lastTexts[0])
	}
}

func TestPrefixEmbedder_EmptyPrefixPassesThrough(t *testing.T) {
	inner := &recordingEmbedder{}
	e := NewPrefixEmbedder(inner, "", "")

	if _, err := e.Embed(context.Background(), []string{"hello"}, RoleQuery); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.lastTexts[0] != "hello" {
		t.Errorf("empty prefix must not alter the text: %q", inner.lastTexts[0])
	}
}

func TestCheckDimensions(t *testing.T) {
	vecs := [][]float32{{1, 2, 3}, {4, 5, 6}}
	if err := CheckDimensions(vecs, 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := CheckDimensions([][]float32{{1, 2}}, 3)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCheckDimensions_ZeroWantDisables(t *testing.T) {
	if err := CheckDimensions([][]float32{{1}, {1, 2}}, 0); err != nil {
		t.Errorf("zero want must disable the check: %v", err)
	}
}
