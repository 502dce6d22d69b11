package testutils

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/chatrag/chatrag/pkg/models"
)

var (
	_ models.EmbeddingProvider = &FakeEmbedder{}
	_ models.EmbeddingProvider = &FlakyEmbedder{}
	_ models.LLM               = &FakeLLM{}
	_ models.RelevanceScorer   = &FakeScorer{}
	_ models.TokenCounter      = &WordCounter{}
)

// FakeEmbedder derives a deterministic vector from the words of each text, so
// texts sharing words are close under cosine similarity.
type FakeEmbedder struct {
	Dims int

	mu    sync.Mutex
	Calls [][]string
}

func NewFakeEmbedder(dims int) *FakeEmbedder {
	return &FakeEmbedder{Dims: dims}
}

func (f *FakeEmbedder) Name() string { return "fake" }

func (f *FakeEmbedder) Embed(_ context.Context, texts []string) ([]models.Embedding, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, append([]string(nil), texts...))
	f.mu.Unlock()

	out := make([]models.Embedding, len(texts))
	for i, t := range texts {
		out[i] = FakeVector(t, f.Dims)
	}
	return out, nil
}

func (f *FakeEmbedder) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// FakeVector hashes each lower cased word into a bucket. A text with no words gets
// a unit vector on the first axis.
func FakeVector(text string, dims int) models.Embedding {
	v := make(models.Embedding, dims)
	words := strings.Fields(strings.ToLower(text))
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,!?;:")))
		v[int(h.Sum32())%dims]++
	}
	if len(words) == 0 {
		v[0] = 1
	}
	return v
}

// FlakyEmbedder fails the first Failures calls with Err, then delegates to Next.
type FlakyEmbedder struct {
	Next     models.EmbeddingProvider
	Failures int
	Err      error

	mu    sync.Mutex
	calls int
}

func (f *FlakyEmbedder) Name() string { return "flaky" }

func (f *FlakyEmbedder) Embed(ctx context.Context, texts []string) ([]models.Embedding, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()

	if n <= f.Failures {
		return nil, f.Err
	}
	return f.Next.Embed(ctx, texts)
}

func (f *FlakyEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeLLM records its prompts and answers with Answer, or Err when set.
type FakeLLM struct {
	Answer string
	Err    error

	mu     sync.Mutex
	System []string
	User   []string
}

func (f *FakeLLM) Complete(_ context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.System = append(f.System, system)
	f.User = append(f.User, user)
	f.mu.Unlock()

	if f.Err != nil {
		return "", f.Err
	}
	return f.Answer, nil
}

func (f *FakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.User)
}

// FakeScorer scores a candidate by how many query words it contains. Scores maps
// exact candidates to fixed scores and takes precedence.
type FakeScorer struct {
	Scores map[string]float64
	Err    error

	mu    sync.Mutex
	Calls int
}

func (f *FakeScorer) Predict(_ context.Context, query string, candidates []string) ([]float64, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	words := strings.Fields(strings.ToLower(query))
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		if s, ok := f.Scores[c]; ok {
			scores[i] = s
			continue
		}
		lc := strings.ToLower(c)
		for _, w := range words {
			if strings.Contains(lc, w) {
				scores[i]++
			}
		}
	}
	return scores, nil
}

// WordCounter treats each whitespace separated word as a token. Decoding joins
// words with single spaces.
type WordCounter struct {
	mu    sync.Mutex
	ids   map[string]int
	words []string
}

func NewWordCounter() *WordCounter {
	return &WordCounter{ids: make(map[string]int)}
}

func (w *WordCounter) Encode(text string) []int {
	w.mu.Lock()
	defer w.mu.Unlock()

	fields := strings.Fields(text)
	tokens := make([]int, len(fields))
	for i, f := range fields {
		id, ok := w.ids[f]
		if !ok {
			id = len(w.words)
			w.ids[f] = id
			w.words = append(w.words, f)
		}
		tokens[i] = id
	}
	return tokens
}

func (w *WordCounter) Decode(tokens []int) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = w.words[t]
	}
	return strings.Join(out, " ")
}
