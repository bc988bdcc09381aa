// Package ingest turns a directory of markdown documents into indexable
// chunks and optionally watches it for changes.
package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/metassist/kb-assistant/internal/core"
)

const (
	// maxChunkChars bounds a chunk; splitting also happens on markdown
	// headers so sections stay coherent.
	maxChunkChars = 900
	// minChunkChars drops fragments too short to retrieve meaningfully.
	minChunkChars = 40
)

// BuildChunks reads every markdown file under docsPath (up to limit files
// when limit > 0) and splits each into chunks with stable identifiers
// "{stem}:{index-within-document}".
func BuildChunks(docsPath string, limit int) ([]core.DocChunk, error) {
	files, err := markdownFiles(docsPath, limit)
	if err != nil {
		return nil, err
	}

	var chunks []core.DocChunk
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		title := strings.TrimSpace(strings.ReplaceAll(stem, "_", " "))
		for i, piece := range chunkMarkdown(string(raw), maxChunkChars) {
			chunks = append(chunks, core.DocChunk{
				DocID:      fmt.Sprintf("%s:%d", stem, i),
				Title:      title,
				SourcePath: path,
				Text:       piece,
			})
		}
	}
	return chunks, nil
}

func markdownFiles(root string, limit int) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// chunkMarkdown splits text into passages, starting a new passage on each
// markdown header and whenever the size budget is exceeded. Passages at or
// below the minimum length are discarded.
func chunkMarkdown(text string, maxChars int) []string {
	var parts []string
	var buf []string
	size := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		parts = append(parts, strings.TrimSpace(strings.Join(buf, " ")))
		buf, size = nil, 0
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") && len(buf) > 0 {
			flush()
		}
		lineLen := utf8.RuneCountInString(line)
		if size+lineLen+1 > maxChars && len(buf) > 0 {
			flush()
		}
		buf = append(buf, line)
		size += lineLen + 1
	}
	flush()

	out := parts[:0]
	for _, p := range parts {
		if utf8.RuneCountInString(p) > minChunkChars {
			out = append(out, p)
		}
	}
	return out
}
