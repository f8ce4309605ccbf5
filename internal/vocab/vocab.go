// Package vocab maps corpus tokens to dense integer ids.
package vocab

import (
	"errors"
	"strconv"
)

// Reserved tokens.
const (
	Unknown = "<unk>"
	Start   = "<s>"
	End     = "</s>"
)

// UnknownID is the id of Unknown in every dictionary.
const UnknownID = 0

// ErrFrozen is returned when a token is added to a frozen dictionary.
var ErrFrozen = errors.New("vocab: dictionary is frozen")

// Dictionary is a bidirectional token <-> id mapping. It grows while the
// training corpus is ingested and is frozen afterwards; lookups of unseen
// tokens on a frozen dictionary resolve to UnknownID without adding entries.
type Dictionary struct {
	tokens []string
	ids    map[string]int
	frozen bool
}

// New returns a dictionary holding only the unknown-word token.
func New() *Dictionary {
	d := &Dictionary{ids: make(map[string]int)}
	d.tokens = append(d.tokens, Unknown)
	d.ids[Unknown] = UnknownID
	return d
}

// FromCorpus builds a frozen dictionary from the training sentences. Tokens
// receive ids in order of first appearance; the sentence boundary markers
// are appended after the corpus tokens.
func FromCorpus(sentences [][]string) *Dictionary {
	d := New()
	for _, s := range sentences {
		for _, tok := range s {
			_, _ = d.Add(tok)
		}
	}
	_, _ = d.Add(Start)
	_, _ = d.Add(End)
	d.Freeze()
	return d
}

// Add returns the id for token, assigning the next free id when the token is
// new.
func (d *Dictionary) Add(token string) (int, error) {
	if id, ok := d.ids[token]; ok {
		return id, nil
	}
	if d.frozen {
		return UnknownID, ErrFrozen
	}
	id := len(d.tokens)
	d.tokens = append(d.tokens, token)
	d.ids[token] = id
	return id, nil
}

// Freeze stops the dictionary from growing.
func (d *Dictionary) Freeze() { d.frozen = true }

// Frozen reports whether Freeze has been called.
func (d *Dictionary) Frozen() bool { return d.frozen }

// Lookup returns the id of token, or UnknownID when it is not in the
// dictionary. It never mutates d.
func (d *Dictionary) Lookup(token string) int {
	if id, ok := d.ids[token]; ok {
		return id
	}
	return UnknownID
}

// Contains reports whether token has its own id.
func (d *Dictionary) Contains(token string) bool {
	_, ok := d.ids[token]
	return ok
}

// IDs maps every token of a sentence through Lookup.
func (d *Dictionary) IDs(tokens []string) []int {
	out := make([]int, len(tokens))
	for i, tok := range tokens {
		out[i] = d.Lookup(tok)
	}
	return out
}

// Token returns the token string for id.
func (d *Dictionary) Token(id int) string {
	if id < 0 || id >= len(d.tokens) {
		return "[invalid id " + strconv.Itoa(id) + "]"
	}
	return d.tokens[id]
}

// Tokens maps every id through Token.
func (d *Dictionary) Tokens(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = d.Token(id)
	}
	return out
}

// Size returns the number of entries, reserved tokens included.
func (d *Dictionary) Size() int { return len(d.tokens) }

// StartID returns the id of the sentence start marker.
func (d *Dictionary) StartID() int { return d.Lookup(Start) }

// EndID returns the id of the sentence end marker.
func (d *Dictionary) EndID() int { return d.Lookup(End) }
