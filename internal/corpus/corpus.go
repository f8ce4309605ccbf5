// Package corpus reads tokenized plain-text corpora.
//
// A corpus file holds one sentence per line with tokens separated by
// whitespace. Blank lines are skipped.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Corpus is an ordered list of tokenized sentences.
type Corpus [][]string

// maxLineBytes bounds a single sentence line.
const maxLineBytes = 16 << 20

// Read parses sentences from r.
func Read(r io.Reader) (Corpus, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var out Corpus
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		out = append(out, fields)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Load reads the corpus stored at path.
func Load(path string) (Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer func() { _ = f.Close() }()

	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read corpus %q: %w", path, err)
	}
	return c, nil
}

// LoadOptional behaves like Load but returns an empty corpus for an empty
// path.
func LoadOptional(path string) (Corpus, error) {
	if strings.TrimSpace(path) == "" {
		return Corpus{}, nil
	}
	return Load(path)
}

// Tokens returns the total number of tokens across all sentences.
func (c Corpus) Tokens() int {
	n := 0
	for _, s := range c {
		n += len(s)
	}
	return n
}
