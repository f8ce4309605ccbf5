// Package dataset turns tokenized sentences into (context, target) training
// instances for an n-gram language model.
package dataset

import (
	"github.com/samcharles93/lbl/internal/vocab"
)

// Instance is one prediction problem: the ContextSize preceding word ids and
// the id of the word that follows them.
type Instance struct {
	Context []int
	Target  int
}

// Set holds the instances generated from a corpus. Contexts are stored
// row-major in a flat slice of Len()*ContextSize ids.
type Set struct {
	ContextSize int
	contexts    []int
	targets     []int
}

// Pad surrounds ids with contextSize start and end markers.
func Pad(ids []int, contextSize, startID, endID int) []int {
	out := make([]int, 0, len(ids)+2*contextSize)
	for range contextSize {
		out = append(out, startID)
	}
	out = append(out, ids...)
	for range contextSize {
		out = append(out, endID)
	}
	return out
}

// Windows slides a window of contextSize+1 over a padded sentence. The
// result has len(padded)-contextSize instances.
func Windows(padded []int, contextSize int) []Instance {
	n := len(padded) - contextSize
	if n <= 0 {
		return nil
	}
	out := make([]Instance, 0, n)
	for i := range n {
		ctx := make([]int, contextSize)
		copy(ctx, padded[i:i+contextSize])
		out = append(out, Instance{Context: ctx, Target: padded[i+contextSize]})
	}
	return out
}

// SentenceInstances maps a tokenized sentence through the dictionary, pads
// it and returns its windows. The dictionary is only read.
func SentenceInstances(tokens []string, dict *vocab.Dictionary, contextSize int) []Instance {
	padded := Pad(dict.IDs(tokens), contextSize, dict.StartID(), dict.EndID())
	return Windows(padded, contextSize)
}

// MakeInstances generates the instances of every sentence in order.
func MakeInstances(sentences [][]string, dict *vocab.Dictionary, contextSize int) *Set {
	s := &Set{ContextSize: contextSize}
	for _, sentence := range sentences {
		for _, inst := range SentenceInstances(sentence, dict, contextSize) {
			s.Append(inst)
		}
	}
	return s
}

// Append adds one instance. Its context must have ContextSize ids.
func (s *Set) Append(inst Instance) {
	if len(inst.Context) != s.ContextSize {
		panic("dataset: context length does not match set context size")
	}
	s.contexts = append(s.contexts, inst.Context...)
	s.targets = append(s.targets, inst.Target)
}

// Len returns the number of instances.
func (s *Set) Len() int { return len(s.targets) }

// At returns instance i. The context aliases the set's storage.
func (s *Set) At(i int) Instance {
	c := s.ContextSize
	return Instance{Context: s.contexts[i*c : (i+1)*c : (i+1)*c], Target: s.targets[i]}
}

// Slice returns the contexts and targets of instances [lo, hi).
func (s *Set) Slice(lo, hi int) ([][]int, []int) {
	contexts := make([][]int, hi-lo)
	c := s.ContextSize
	for i := lo; i < hi; i++ {
		contexts[i-lo] = s.contexts[i*c : (i+1)*c : (i+1)*c]
	}
	return contexts, s.targets[lo:hi]
}

// NumBatches returns the number of minibatches of size batchSize, counting a
// trailing partial batch.
func (s *Set) NumBatches(batchSize int) int {
	if batchSize <= 0 || s.Len() == 0 {
		return 0
	}
	return (s.Len() + batchSize - 1) / batchSize
}

// Batch returns minibatch index of size batchSize.
func (s *Set) Batch(index, batchSize int) ([][]int, []int) {
	lo := index * batchSize
	hi := min(lo+batchSize, s.Len())
	return s.Slice(lo, hi)
}
