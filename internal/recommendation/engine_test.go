package recommendation

import (
	"context"
	"errors"
	"testing"
	"time"

	"kedaikopi/backend/internal/cache"
	"kedaikopi/backend/internal/domain"
)

// fakeSource is an in-memory Source with adjustable history and catalog.
type fakeSource struct {
	completedCount int
	refs           []domain.OrderItemRef
	siblings       []domain.Product
	topSellers     []domain.ProductSales
	products       map[string]domain.Product

	failAll   bool
	refsCalls int
}

func (f *fakeSource) CountOrdersByStatus(_ context.Context, _ string) (int, error) {
	if f.failAll {
		return 0, errors.New("source down")
	}
	return f.completedCount, nil
}

func (f *fakeSource) CompletedOrderItemRefs(_ context.Context, _ int) ([]domain.OrderItemRef, error) {
	if f.failAll {
		return nil, errors.New("source down")
	}
	f.refsCalls++
	return f.refs, nil
}

func (f *fakeSource) CategorySiblings(_ context.Context, _ []string) ([]domain.Product, error) {
	if f.failAll {
		return nil, errors.New("source down")
	}
	return f.siblings, nil
}

func (f *fakeSource) TopSellers(_ context.Context, _ int) ([]domain.ProductSales, error) {
	if f.failAll {
		return nil, errors.New("source down")
	}
	return f.topSellers, nil
}

func (f *fakeSource) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	if f.failAll {
		return nil, errors.New("source down")
	}
	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeSource) ListProducts(_ context.Context) ([]domain.Product, error) {
	if f.failAll {
		return nil, errors.New("source down")
	}
	products := make([]domain.Product, 0, len(f.products))
	for _, p := range f.products {
		products = append(products, p)
	}
	return products, nil
}

func sellable(id string, name string, price int64) domain.Product {
	return domain.Product{ID: id, Name: name, PriceCents: price, Stock: 10, Active: true}
}

func catalog(products ...domain.Product) map[string]domain.Product {
	out := make(map[string]domain.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out
}

// repeatPair emits n completed orders that each contain both products.
func repeatPair(prefix string, a string, b string, n int) []domain.OrderItemRef {
	refs := make([]domain.OrderItemRef, 0, 2*n)
	for i := 0; i < n; i++ {
		orderID := prefix + string(rune('a'+i%26)) + string(rune('a'+i/26))
		refs = append(refs,
			domain.OrderItemRef{OrderID: orderID, ProductID: a},
			domain.OrderItemRef{OrderID: orderID, ProductID: b},
		)
	}
	return refs
}

func suggestionIDs(suggestions []domain.Suggestion) []string {
	ids := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		ids = append(ids, s.ProductID)
	}
	return ids
}

func equalIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestSuggestRanksByPairCount(t *testing.T) {
	src := &fakeSource{
		completedCount: 50,
		products:       catalog(sellable("A", "Americano", 2200), sellable("B", "Butter Croissant", 2400), sellable("C", "Choc Cookie", 1400)),
	}
	src.refs = append(repeatPair("x", "A", "B", 20), repeatPair("y", "A", "C", 5)...)

	e := NewEngine(src, cache.NoopSuggestionCache{}, time.Minute, 300, 10)
	got := suggestionIDs(e.Suggest(context.Background(), []string{"A"}, 3))
	if !equalIDs(got, "B", "C") {
		t.Fatalf("expected [B C], got %v", got)
	}
}

func TestSuggestTieBreaksByProductID(t *testing.T) {
	src := &fakeSource{
		completedCount: 50,
		products:       catalog(sellable("A", "A", 100), sellable("B", "B", 100), sellable("C", "C", 100)),
	}
	src.refs = append(repeatPair("x", "A", "C", 7), repeatPair("y", "A", "B", 7)...)

	e := NewEngine(src, cache.NoopSuggestionCache{}, time.Minute, 300, 10)
	got := suggestionIDs(e.Suggest(context.Background(), []string{"A"}, 3))
	if !equalIDs(got, "B", "C") {
		t.Fatalf("expected tie broken by id ascending [B C], got %v", got)
	}
}

func TestSuggestExcludesCartAndUnsellable(t *testing.T) {
	outOfStock := sellable("B", "B", 100)
	outOfStock.Stock = 0
	inactive := sellable("C", "C", 100)
	inactive.Active = false

	src := &fakeSource{
		completedCount: 50,
		products:       catalog(sellable("A", "A", 100), outOfStock, inactive, sellable("D", "D", 100)),
	}
	src.refs = append(repeatPair("x", "A", "B", 9), repeatPair("y", "A", "C", 8)...)
	src.refs = append(src.refs, repeatPair("z", "A", "D", 3)...)

	e := NewEngine(src, cache.NoopSuggestionCache{}, time.Minute, 300, 10)
	got := suggestionIDs(e.Suggest(context.Background(), []string{"A"}, 3))
	if !equalIDs(got, "D") {
		t.Fatalf("expected only sellable candidate [D], got %v", got)
	}
}

func TestSuggestLowDataUsesCategorySiblings(t *testing.T) {
	src := &fakeSource{
		completedCount: 4, // below threshold
		siblings: []domain.Product{
			sellable("TEA-JAS-01", "Jasmine Tea", 1600),
			sellable("TEA-LEM-01", "Lemon Tea", 1800),
		},
		topSellers: []domain.ProductSales{
			{ProductID: "COF-LAT-01", QtySold: 40},
		},
		products: catalog(
			sellable("TEA-JAS-01", "Jasmine Tea", 1600),
			sellable("TEA-LEM-01", "Lemon Tea", 1800),
			sellable("COF-LAT-01", "Cafe Latte", 2800),
		),
	}

	e := NewEngine(src, cache.NoopSuggestionCache{}, time.Minute, 300, 10)
	got := suggestionIDs(e.Suggest(context.Background(), []string{"TEA-MIN-01"}, 3))
	if !equalIDs(got, "TEA-JAS-01", "TEA-LEM-01", "COF-LAT-01") {
		t.Fatalf("expected siblings then top-seller padding, got %v", got)
	}
}

func TestSuggestLowDataSkipsUnsellableSiblings(t *testing.T) {
	empty := sellable("TEA-LEM-01", "Lemon Tea", 1800)
	empty.Stock = 0

	src := &fakeSource{
		completedCount: 0,
		siblings:       []domain.Product{empty, sellable("TEA-JAS-01", "Jasmine Tea", 1600)},
		products:       catalog(sellable("TEA-JAS-01", "Jasmine Tea", 1600)),
	}

	e := NewEngine(src, cache.NoopSuggestionCache{}, time.Minute, 300, 10)
	got := suggestionIDs(e.Suggest(context.Background(), []string{"TEA-MIN-01"}, 2))
	if !equalIDs(got, "TEA-JAS-01") {
		t.Fatalf("expected out-of-stock sibling skipped, got %v", got)
	}
}

func TestSuggestFallsBackToTopSellersWhenNoPairs(t *testing.T) {
	src := &fakeSource{
		completedCount: 50,
		refs:           nil,
		topSellers: []domain.ProductSales{
			{ProductID: "COF-LAT-01", QtySold: 40},
			{ProductID: "PAS-CRO-01", QtySold: 22},
		},
		products: catalog(sellable("COF-LAT-01", "Cafe Latte", 2800), sellable("PAS-CRO-01", "Butter Croissant", 2400)),
	}

	e := NewEngine(src, cache.NoopSuggestionCache{}, time.Minute, 300, 10)
	got := suggestionIDs(e.Suggest(context.Background(), []string{"COF-ESP-01"}, 3))
	if !equalIDs(got, "COF-LAT-01", "PAS-CRO-01") {
		t.Fatalf("expected top sellers fallback, got %v", got)
	}
}

func TestSuggestEmptyCartReturnsNothing(t *testing.T) {
	e := NewEngine(&fakeSource{}, cache.NoopSuggestionCache{}, time.Minute, 300, 10)
	if got := e.Suggest(context.Background(), nil, 3); len(got) != 0 {
		t.Fatalf("expected no suggestions for empty cart, got %v", got)
	}
	if got := e.Suggest(context.Background(), []string{"  ", ""}, 3); len(got) != 0 {
		t.Fatalf("expected no suggestions for blank ids, got %v", got)
	}
}

func TestSuggestSwallowsSourceFailures(t *testing.T) {
	e := NewEngine(&fakeSource{failAll: true}, cache.NoopSuggestionCache{}, time.Minute, 300, 10)
	if got := e.Suggest(context.Background(), []string{"A"}, 3); len(got) != 0 {
		t.Fatalf("expected empty result when source is down, got %v", got)
	}
}

func TestSuggestResolvesNameAndPrice(t *testing.T) {
	src := &fakeSource{
		completedCount: 50,
		refs:           repeatPair("x", "A", "B", 12),
		products:       catalog(sellable("A", "Americano", 2200), sellable("B", "Butter Croissant", 2400)),
	}

	e := NewEngine(src, cache.NoopSuggestionCache{}, time.Minute, 300, 10)
	got := e.Suggest(context.Background(), []string{"A"}, 3)
	if len(got) != 1 {
		t.Fatalf("expected one suggestion, got %v", got)
	}
	if got[0].Name != "Butter Croissant" || got[0].PriceCents != 2400 {
		t.Fatalf("unexpected resolved suggestion: %+v", got[0])
	}
}

func TestPairTableHonorsTTL(t *testing.T) {
	src := &fakeSource{
		completedCount: 50,
		refs:           repeatPair("x", "A", "B", 12),
		products:       catalog(sellable("A", "A", 100), sellable("B", "B", 100)),
	}

	e := NewEngine(src, cache.NoopSuggestionCache{}, 300*time.Second, 300, 10)
	current := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return current }

	e.Suggest(context.Background(), []string{"A"}, 3)
	e.Suggest(context.Background(), []string{"A"}, 3)
	if src.refsCalls != 1 {
		t.Fatalf("expected table built once inside TTL, got %d builds", src.refsCalls)
	}

	current = current.Add(299 * time.Second)
	e.Suggest(context.Background(), []string{"A"}, 3)
	if src.refsCalls != 1 {
		t.Fatalf("expected no rebuild at 299s, got %d builds", src.refsCalls)
	}

	current = current.Add(2 * time.Second)
	e.Suggest(context.Background(), []string{"A"}, 3)
	if src.refsCalls != 2 {
		t.Fatalf("expected rebuild after TTL lapse, got %d builds", src.refsCalls)
	}
}

func TestOrderCompletedInvalidatesTable(t *testing.T) {
	src := &fakeSource{
		completedCount: 50,
		refs:           repeatPair("x", "A", "B", 12),
		products:       catalog(sellable("A", "A", 100), sellable("B", "B", 100), sellable("C", "C", 100)),
	}

	e := NewEngine(src, cache.NoopSuggestionCache{}, time.Hour, 300, 10)
	got := suggestionIDs(e.Suggest(context.Background(), []string{"A"}, 3))
	if !equalIDs(got, "B") {
		t.Fatalf("expected [B], got %v", got)
	}

	// New history lands with the completion event; the table must rebuild
	// even though the TTL has not lapsed.
	src.refs = repeatPair("y", "A", "C", 15)
	e.OrderCompleted("ord-1")

	got = suggestionIDs(e.Suggest(context.Background(), []string{"A"}, 3))
	if !equalIDs(got, "C") {
		t.Fatalf("expected [C] after invalidation, got %v", got)
	}
	if src.refsCalls != 2 {
		t.Fatalf("expected table rebuilt after invalidation, got %d builds", src.refsCalls)
	}
}

func TestInvalidateBumpsCacheGeneration(t *testing.T) {
	e := NewEngine(&fakeSource{}, cache.NoopSuggestionCache{}, time.Minute, 300, 10)

	before := e.buildCacheKey([]string{"A"}, 3)
	e.Invalidate()
	after := e.buildCacheKey([]string{"A"}, 3)
	if before == after {
		t.Fatalf("expected cache key to change after invalidation")
	}
}

func TestSuggestServesFromResponseCache(t *testing.T) {
	src := &fakeSource{
		completedCount: 50,
		refs:           repeatPair("x", "A", "B", 12),
		products:       catalog(sellable("A", "A", 100), sellable("B", "B", 100)),
	}
	store := &countingCache{entries: make(map[string][]domain.Suggestion)}

	e := NewEngine(src, store, time.Minute, 300, 10)
	e.Suggest(context.Background(), []string{"A"}, 3)
	e.Suggest(context.Background(), []string{"A"}, 3)

	if store.sets != 1 {
		t.Fatalf("expected one cache fill, got %d", store.sets)
	}
	if src.refsCalls != 1 {
		t.Fatalf("expected second call served from cache, got %d table builds", src.refsCalls)
	}
}

type countingCache struct {
	entries map[string][]domain.Suggestion
	sets    int
}

func (c *countingCache) Get(_ context.Context, key string) ([]domain.Suggestion, bool, error) {
	val, ok := c.entries[key]
	return val, ok, nil
}

func (c *countingCache) Set(_ context.Context, key string, val []domain.Suggestion, _ time.Duration) error {
	c.sets++
	c.entries[key] = val
	return nil
}
