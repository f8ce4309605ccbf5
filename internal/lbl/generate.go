package lbl

import (
	"github.com/samcharles93/lbl/internal/logits"
)

// Generate extends prefix one word at a time by sampling from the model
// until endID is drawn or maxLen words have been produced. The context
// window starts filled with startID, like a padded training sentence. The
// returned slice holds only the generated words, endID excluded.
func (m *Model) Generate(sampler *logits.Sampler, prefix []int, startID, endID, maxLen int) ([]int, error) {
	window := make([]int, 0, m.ContextSize+len(prefix))
	for range m.ContextSize {
		window = append(window, startID)
	}
	window = append(window, prefix...)

	var out []int
	for len(out) < maxLen {
		ctx := window[len(window)-m.ContextSize:]
		dist, err := m.Distribution(ctx)
		if err != nil {
			return out, err
		}
		next := sampler.Sample(dist)
		if next == endID {
			break
		}
		out = append(out, next)
		window = append(window, next)
	}
	return out, nil
}
