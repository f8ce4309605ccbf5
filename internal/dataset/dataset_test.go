package dataset

import (
	"testing"

	"github.com/samcharles93/lbl/internal/vocab"
)

func TestSentenceInstanceCount(t *testing.T) {
	t.Parallel()

	dict := vocab.FromCorpus([][]string{{"a", "b", "c", "d"}})
	for _, c := range []int{1, 2, 3, 5} {
		for n := 1; n <= 4; n++ {
			sentence := []string{"a", "b", "c", "d"}[:n]
			padded := Pad(dict.IDs(sentence), c, dict.StartID(), dict.EndID())
			got := SentenceInstances(sentence, dict, c)
			if len(got) != len(padded)-c {
				t.Fatalf("c=%d n=%d: got %d instances, want %d", c, n, len(got), len(padded)-c)
			}
			for i, inst := range got {
				if len(inst.Context) != c {
					t.Fatalf("c=%d n=%d instance %d: context length %d", c, n, i, len(inst.Context))
				}
			}
		}
	}
}

func TestSentenceInstancesWindows(t *testing.T) {
	t.Parallel()

	dict := vocab.FromCorpus([][]string{{"a", "b"}})
	a, b := dict.Lookup("a"), dict.Lookup("b")
	s, e := dict.StartID(), dict.EndID()

	got := SentenceInstances([]string{"a", "b"}, dict, 2)
	want := []Instance{
		{Context: []int{s, s}, Target: a},
		{Context: []int{s, a}, Target: b},
		{Context: []int{a, b}, Target: e},
		{Context: []int{b, e}, Target: e},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d instances, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Target != want[i].Target {
			t.Errorf("instance %d target: got %d, want %d", i, got[i].Target, want[i].Target)
		}
		for j := range want[i].Context {
			if got[i].Context[j] != want[i].Context[j] {
				t.Errorf("instance %d context: got %v, want %v", i, got[i].Context, want[i].Context)
				break
			}
		}
	}
}

func TestMakeInstancesUnknownWords(t *testing.T) {
	t.Parallel()

	dict := vocab.FromCorpus([][]string{{"a"}})
	size := dict.Size()
	set := MakeInstances([][]string{{"zzz", "a"}}, dict, 1)
	if dict.Size() != size {
		t.Fatalf("dictionary grew while generating dev instances")
	}
	if set.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", set.Len())
	}
	if set.At(0).Target != vocab.UnknownID {
		t.Fatalf("expected unknown target, got %d", set.At(0).Target)
	}
}

func TestBatches(t *testing.T) {
	t.Parallel()

	dict := vocab.FromCorpus([][]string{{"a", "b", "c"}})
	set := MakeInstances([][]string{{"a", "b", "c"}, {"c", "b"}}, dict, 2)
	// 3+2 and 2+2 instances.
	if set.Len() != 9 {
		t.Fatalf("Len: got %d, want 9", set.Len())
	}
	if got := set.NumBatches(4); got != 3 {
		t.Fatalf("NumBatches(4): got %d, want 3", got)
	}
	ctx, tgt := set.Batch(2, 4)
	if len(ctx) != 1 || len(tgt) != 1 {
		t.Fatalf("last batch: got %d contexts, %d targets", len(ctx), len(tgt))
	}
	if set.NumBatches(0) != 0 {
		t.Fatal("NumBatches(0) must be 0")
	}
	empty := &Set{ContextSize: 2}
	if empty.NumBatches(10) != 0 {
		t.Fatal("empty set must have no batches")
	}
}

func TestAppendPanicsOnWrongContext(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	s := &Set{ContextSize: 2}
	s.Append(Instance{Context: []int{1}, Target: 0})
}
