package flatjson

import (
	"errors"
	"testing"

	snarferrors "github.com/coursekit/snarf/core/errors"
)

func TestDetect(t *testing.T) {
	h := &Handler{}

	if !h.Detect([]byte(`  [{"label":"HW1"}]`)) {
		t.Error("Detect() = false for a JSON array body")
	}
	if h.Detect([]byte(`<snarf_site/>`)) {
		t.Error("Detect() = true for an XML body")
	}
	if h.Detect([]byte(`{"label":"HW1"}`)) {
		t.Error("Detect() = true for a bare JSON object")
	}
}

func TestParse_WellFormed(t *testing.T) {
	body := []byte(`[
		{"label": "HW1", "description": "First homework", "url": "https://x/hw1.zip"},
		{"label": "HW2", "url": "https://x/hw2.zip", "excludes": ["*.bak"], "blake3": "aabb"}
	]`)

	h := &Handler{}
	root, err := h.Parse(body)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	leaves := root.Flatten()
	if len(leaves) != 2 {
		t.Fatalf("Parse() produced %d leaves, want 2", len(leaves))
	}
	if len(root.Groups) != 0 {
		t.Errorf("flat JSON should produce no groups, got %d", len(root.Groups))
	}

	hw1 := leaves[0]
	if hw1.Label != "HW1" || hw1.Description != "First homework" {
		t.Errorf("leaf 0 = %q / %q", hw1.Label, hw1.Description)
	}
	ep, err := hw1.Primary()
	if err != nil {
		t.Fatalf("Primary() error: %v", err)
	}
	if ep.URI != "https://x/hw1.zip" {
		t.Errorf("endpoint URI = %q, want verbatim source URL", ep.URI)
	}

	hw2 := leaves[1]
	if len(hw2.ExcludePatterns) != 1 || hw2.ExcludePatterns[0] != "*.bak" {
		t.Errorf("leaf 1 excludes = %v", hw2.ExcludePatterns)
	}
	if hw2.Digest != "aabb" {
		t.Errorf("leaf 1 digest = %q", hw2.Digest)
	}
}

func TestParse_MissingLabel(t *testing.T) {
	h := &Handler{}
	_, err := h.Parse([]byte(`[{"url": "https://x/hw1.zip"}]`))
	if !errors.Is(err, snarferrors.ErrFormat) {
		t.Errorf("Parse() error = %v, want FormatError", err)
	}
}

func TestParse_MissingURL(t *testing.T) {
	h := &Handler{}
	_, err := h.Parse([]byte(`[{"label": "HW1"}]`))
	if !errors.Is(err, snarferrors.ErrFormat) {
		t.Errorf("Parse() error = %v, want FormatError", err)
	}
}

func TestParse_NotAnArray(t *testing.T) {
	h := &Handler{}
	_, err := h.Parse([]byte(`{"label": "HW1"}`))
	if !errors.Is(err, snarferrors.ErrFormat) {
		t.Errorf("Parse() error = %v, want FormatError", err)
	}
}

func TestParse_EmptyArray(t *testing.T) {
	h := &Handler{}
	root, err := h.Parse([]byte(`[]`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(root.Flatten()) != 0 {
		t.Error("empty manifest should produce an empty tree, not an error")
	}
}
