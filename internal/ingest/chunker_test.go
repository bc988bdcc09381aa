package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestBuildChunksTwoHeadedSections(t *testing.T) {
	dir := t.TempDir()
	doc := "# Delivery terms\n" +
		"Standard delivery takes ten business days across the federal districts.\n" +
		"# Payment terms\n" +
		"Invoices are payable within five business days of issue, prepayment possible.\n"
	writeDoc(t, dir, "terms_and_conditions.md", doc)

	chunks, err := BuildChunks(dir, 0)
	if err != nil {
		t.Fatalf("build chunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected exactly 2 chunks, got %d", len(chunks))
	}
	if chunks[0].DocID != "terms_and_conditions:0" || chunks[1].DocID != "terms_and_conditions:1" {
		t.Errorf("unexpected chunk ids: %q, %q", chunks[0].DocID, chunks[1].DocID)
	}
	for _, c := range chunks {
		if c.Title != "terms and conditions" {
			t.Errorf("title must be the stem with underscores replaced, got %q", c.Title)
		}
		if c.SourcePath == "" {
			t.Error("source path must be set")
		}
	}
	if !strings.Contains(chunks[0].Text, "Delivery terms") || !strings.Contains(chunks[1].Text, "Payment terms") {
		t.Errorf("chunks out of document order: %q / %q", chunks[0].Text, chunks[1].Text)
	}
}

func TestBuildChunksDropsShortSections(t *testing.T) {
	dir := t.TempDir()
	doc := "# Tiny\nshort\n# Real section\n" +
		"This section is comfortably longer than the forty character minimum for retention.\n"
	writeDoc(t, dir, "doc.md", doc)

	chunks, err := BuildChunks(dir, 0)
	if err != nil {
		t.Fatalf("build chunks: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected the short section to be dropped, got %d chunks", len(chunks))
	}
	if chunks[0].DocID != "doc:0" {
		t.Errorf("surviving chunk must be reindexed from zero, got %q", chunks[0].DocID)
	}
}

func TestBuildChunksSplitsOnSizeBudget(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("# Long section\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Line %02d with enough words to accumulate characters steadily.\n", i)
	}
	writeDoc(t, dir, "long.md", b.String())

	chunks, err := BuildChunks(dir, 0)
	if err != nil {
		t.Fatalf("build chunks: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected the oversized section to split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c.Text); n > maxChunkChars {
			t.Errorf("chunk %d exceeds the size budget: %d runes", i, n)
		}
	}
}

func TestBuildChunksHonorsFileLimit(t *testing.T) {
	dir := t.TempDir()
	section := "# Section\nA section body clearly above the minimum chunk length threshold here.\n"
	writeDoc(t, dir, "a.md", section)
	writeDoc(t, dir, "b.md", section)
	writeDoc(t, dir, "c.md", section)

	chunks, err := BuildChunks(dir, 2)
	if err != nil {
		t.Fatalf("build chunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected chunks from 2 files only, got %d", len(chunks))
	}
	// Files are processed in sorted order for stable ids.
	if chunks[0].DocID != "a:0" || chunks[1].DocID != "b:0" {
		t.Errorf("unexpected ids: %q, %q", chunks[0].DocID, chunks[1].DocID)
	}
}

func TestBuildChunksIgnoresNonMarkdown(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "notes.txt", "# Not markdown\nlong enough content but the wrong extension entirely.\n")
	chunks, err := BuildChunks(dir, 0)
	if err != nil {
		t.Fatalf("build chunks: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks from non-markdown files, got %d", len(chunks))
	}
}
