package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/MereWhiplash/ikc-search/internal/embedder"
	"github.com/MereWhiplash/ikc-search/internal/service"
	"github.com/MereWhiplash/ikc-search/internal/types"
)

const kbText = `Onboarding
• New joiners must complete the security induction within their first week.
• Laptops are issued by the IT desk on the first day after badge pickup.
short
• Quarterly reviews are scheduled by the people team two weeks in advance.`

// mockEmbedder implements embedder.Embedder for testing
type mockEmbedder struct {
	mu      sync.Mutex
	calls   int
	queries []string
	err     error
}

func (m *mockEmbedder) EmbedForStorage(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (m *mockEmbedder) EmbedForSearch(ctx context.Context, query string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return []float32{1, 1}, nil
}

func (m *mockEmbedder) Dimensions() int { return 2 }

// mockBatchEmbedder also implements embedder.BatchEmbedder
type mockBatchEmbedder struct {
	mockEmbedder
	batches int
}

func (m *mockBatchEmbedder) EmbedBatchForStorage(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

// mockStorage implements storage.Storage for testing
type mockStorage struct {
	chunks     map[string]types.Chunk
	embeddings map[string][]float32
	upserts    int
	resets     int
	searchErr  error
	lastOpts   types.SearchOpts
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		chunks:     map[string]types.Chunk{},
		embeddings: map[string][]float32{},
	}
}

func (m *mockStorage) Upsert(ctx context.Context, chunks []types.Chunk, embeddings [][]float32) error {
	m.upserts++
	for i, c := range chunks {
		m.chunks[c.ID] = c
		m.embeddings[c.ID] = embeddings[i]
	}
	return nil
}

func (m *mockStorage) Search(ctx context.Context, embedding []float32, opts types.SearchOpts) ([]types.Hit, error) {
	m.lastOpts = opts
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	hits := []types.Hit{}
	for _, c := range m.chunks {
		hits = append(hits, types.Hit{Chunk: c, Score: 0.5})
		if len(hits) == opts.EffectiveLimit() {
			break
		}
	}
	return hits, nil
}

func (m *mockStorage) Count(ctx context.Context) (int, error) {
	return len(m.chunks), nil
}

func (m *mockStorage) Reset(ctx context.Context) error {
	m.resets++
	m.chunks = map[string]types.Chunk{}
	m.embeddings = map[string][]float32{}
	return nil
}

func (m *mockStorage) Close() error {
	return nil
}

func TestService_Search(t *testing.T) {
	store := newMockStorage()
	emb := &mockEmbedder{}
	svc := service.New(store, emb)
	ctx := context.Background()

	if _, err := svc.Build(ctx, kbText, service.BuildOpts{}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := svc.Search(ctx, "  laptop pickup  ", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if !result.Found() {
		t.Fatal("expected hits")
	}
	if result.Query != "laptop pickup" {
		t.Errorf("expected trimmed query, got %q", result.Query)
	}
	if emb.queries[0] != "laptop pickup" {
		t.Errorf("expected embedder to see trimmed query, got %q", emb.queries[0])
	}
	if len(result.Hits) != types.DefaultLimit {
		t.Errorf("expected %d hits, got %d", types.DefaultLimit, len(result.Hits))
	}
}

func TestService_Search_EmptyQuery(t *testing.T) {
	emb := &mockEmbedder{}
	svc := service.New(newMockStorage(), emb)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := svc.Search(context.Background(), q, 3)
		if !errors.Is(err, types.ErrEmptyQuery) {
			t.Errorf("query %q: expected ErrEmptyQuery, got %v", q, err)
		}
	}
	if len(emb.queries) != 0 {
		t.Errorf("embedder should not be called for empty queries, got %d calls", len(emb.queries))
	}
}

func TestService_Search_EmptyCollection(t *testing.T) {
	svc := service.New(newMockStorage(), &mockEmbedder{})

	result, err := svc.Search(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Found() {
		t.Error("expected no hits on empty collection")
	}
}

func TestService_Search_Errors(t *testing.T) {
	store := newMockStorage()
	store.searchErr = errors.New("disk on fire")
	svc := service.New(store, &mockEmbedder{})

	_, err := svc.Search(context.Background(), "anything", 3)
	if err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("expected storage error, got %v", err)
	}

	svc = service.New(newMockStorage(), &mockEmbedder{err: errors.New("model gone")})
	_, err = svc.Search(context.Background(), "anything", 3)
	if err == nil || !strings.Contains(err.Error(), "failed to generate embedding") {
		t.Errorf("expected embedding error, got %v", err)
	}
}

func TestService_Build(t *testing.T) {
	store := newMockStorage()
	emb := &mockEmbedder{}
	svc := service.New(store, emb)

	stats, err := svc.Build(context.Background(), kbText, service.BuildOpts{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if stats.Chunks != 3 {
		t.Errorf("expected 3 chunks, got %d", stats.Chunks)
	}
	if stats.Stored != 3 {
		t.Errorf("expected 3 stored, got %d", stats.Stored)
	}
	if emb.calls != 3 {
		t.Errorf("expected 3 embed calls, got %d", emb.calls)
	}

	c, ok := store.chunks["ikc_1"]
	if !ok {
		t.Fatal("expected chunk ikc_1")
	}
	if c.Source != types.DefaultSource {
		t.Errorf("expected source %q, got %q", types.DefaultSource, c.Source)
	}
	if got := store.embeddings["ikc_1"][0]; got != float32(len(c.Content)) {
		t.Errorf("embedding not aligned with chunk: got %f for %d-byte content", got, len(c.Content))
	}
}

func TestService_Build_Idempotent(t *testing.T) {
	store := newMockStorage()
	svc := service.New(store, &mockEmbedder{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		stats, err := svc.Build(ctx, kbText, service.BuildOpts{})
		if err != nil {
			t.Fatalf("Build %d failed: %v", i, err)
		}
		if stats.Stored != 3 {
			t.Errorf("build %d: expected 3 stored, got %d", i, stats.Stored)
		}
	}
}

func TestService_Build_Reset(t *testing.T) {
	store := newMockStorage()
	store.chunks["stale_0"] = types.Chunk{ID: "stale_0"}
	svc := service.New(store, &mockEmbedder{})

	stats, err := svc.Build(context.Background(), kbText, service.BuildOpts{Reset: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if store.resets != 1 {
		t.Errorf("expected 1 reset, got %d", store.resets)
	}
	if stats.Stored != 3 {
		t.Errorf("expected stale chunk to be gone, got %d stored", stats.Stored)
	}
}

func TestService_Build_NoChunks(t *testing.T) {
	svc := service.New(newMockStorage(), &mockEmbedder{})

	_, err := svc.Build(context.Background(), "tiny\n• also tiny", service.BuildOpts{})
	if !errors.Is(err, types.ErrNoChunks) {
		t.Errorf("expected ErrNoChunks, got %v", err)
	}
}

func TestService_Build_EmbedError(t *testing.T) {
	store := newMockStorage()
	svc := service.New(store, &mockEmbedder{err: errors.New("ollama down")})

	_, err := svc.Build(context.Background(), kbText, service.BuildOpts{})
	if err == nil {
		t.Fatal("expected error")
	}
	if store.upserts != 0 {
		t.Errorf("nothing should be stored after an embedding failure, got %d upserts", store.upserts)
	}
}

func TestService_Build_ResetKeepsCollectionOnEmbedError(t *testing.T) {
	store := newMockStorage()
	emb := &mockEmbedder{}
	svc := service.New(store, emb)
	ctx := context.Background()

	if _, err := svc.Build(ctx, kbText, service.BuildOpts{}); err != nil {
		t.Fatalf("initial Build failed: %v", err)
	}
	before, _ := svc.Count(ctx)

	emb.err = errors.New("ollama down")
	if _, err := svc.Build(ctx, kbText, service.BuildOpts{Reset: true}); err == nil {
		t.Fatal("expected error")
	}

	if store.resets != 0 {
		t.Errorf("collection should not be reset when embedding fails, got %d resets", store.resets)
	}
	after, _ := svc.Count(ctx)
	if after != before {
		t.Errorf("failed rebuild changed the collection: %d -> %d", before, after)
	}
}

func TestService_Build_Progress(t *testing.T) {
	var lines []string
	for i := 0; i < 25; i++ {
		lines = append(lines, fmt.Sprintf("• paragraph %02d of the internal knowledge center handbook", i))
	}

	store := newMockStorage()
	svc := service.New(store, &mockEmbedder{})

	var reports [][2]int
	_, err := svc.Build(context.Background(), strings.Join(lines, "\n"), service.BuildOpts{
		Concurrency: 1,
		BatchSize:   4,
		OnProgress: func(done, total int) {
			reports = append(reports, [2]int{done, total})
		},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := [][2]int{{10, 25}, {20, 25}, {25, 25}}
	if fmt.Sprint(reports) != fmt.Sprint(want) {
		t.Errorf("expected progress %v, got %v", want, reports)
	}
	if store.upserts != 7 {
		t.Errorf("expected 7 upsert batches of 4, got %d", store.upserts)
	}
}

func TestService_Build_UsesBatchEmbedder(t *testing.T) {
	emb := &mockBatchEmbedder{}
	svc := service.New(newMockStorage(), embedder.NewLazy(func(ctx context.Context) (embedder.Embedder, error) {
		return emb, nil
	}))

	_, err := svc.Build(context.Background(), kbText, service.BuildOpts{BatchSize: 2})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if emb.batches != 2 {
		t.Errorf("expected 2 batch calls, got %d", emb.batches)
	}
	if emb.calls != 0 {
		t.Errorf("expected no single embed calls, got %d", emb.calls)
	}
}

func TestService_ModelLoaded(t *testing.T) {
	svc := service.New(newMockStorage(), &mockEmbedder{})
	if !svc.ModelLoaded() {
		t.Error("plain embedder should report loaded")
	}

	lazy := embedder.NewLazy(func(ctx context.Context) (embedder.Embedder, error) {
		return &mockEmbedder{}, nil
	})
	svc = service.New(newMockStorage(), lazy)
	if svc.ModelLoaded() {
		t.Error("lazy embedder should not be loaded before first use")
	}

	if err := svc.Preload(context.Background()); err != nil {
		t.Fatalf("Preload failed: %v", err)
	}
	if !svc.ModelLoaded() {
		t.Error("expected model loaded after Preload")
	}
}
