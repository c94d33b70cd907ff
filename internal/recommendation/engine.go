// Package recommendation implements the "frequently bought together"
// suggester. It builds a product-pair co-occurrence table from the most
// recent completed orders, keeps it in memory behind a TTL, and degrades to
// category/popularity fallbacks when history is thin. Suggestions are
// advisory: every internal failure yields an empty list, never an error.
package recommendation

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"kedaikopi/backend/internal/cache"
	"kedaikopi/backend/internal/domain"
)

const (
	defaultTTL       = 300 * time.Second
	defaultWindow    = 300
	defaultThreshold = 10
	defaultTopN      = 3
)

// Source is the read-only slice of the repository the engine consumes.
type Source interface {
	CountOrdersByStatus(ctx context.Context, status string) (int, error)
	CompletedOrderItemRefs(ctx context.Context, lastNOrders int) ([]domain.OrderItemRef, error)
	CategorySiblings(ctx context.Context, productIDs []string) ([]domain.Product, error)
	TopSellers(ctx context.Context, limit int) ([]domain.ProductSales, error)
	GetProductsByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// pairKey is the canonical unordered product pair: A is always the smaller id.
type pairKey struct {
	A string
	B string
}

func canonicalPair(a string, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{A: a, B: b}
}

type Engine struct {
	source     Source
	cacheStore cache.SuggestionCache
	ttl        time.Duration
	window     int
	threshold  int
	now        func() time.Time

	mu         sync.Mutex
	pairCounts map[pairKey]int
	builtAt    time.Time
	names      map[string]string
	prices     map[string]int64
	generation uint64
}

func NewEngine(source Source, cacheStore cache.SuggestionCache, ttl time.Duration, window int, threshold int) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopSuggestionCache{}
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if window < 1 {
		window = defaultWindow
	}
	if threshold < 1 {
		threshold = defaultThreshold
	}

	return &Engine{
		source:     source,
		cacheStore: cacheStore,
		ttl:        ttl,
		window:     window,
		threshold:  threshold,
		now:        time.Now,
		names:      make(map[string]string),
		prices:     make(map[string]int64),
	}
}

// Invalidate drops the pair-count table and the product name/price
// read-through caches, and bumps the response cache generation so stale
// Redis entries are never served again.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pairCounts = nil
	e.builtAt = time.Time{}
	e.names = make(map[string]string)
	e.prices = make(map[string]int64)
	e.generation++
}

// OrderCompleted makes the engine a completion listener: the ledger emits a
// completed event instead of the caller having to remember to invalidate.
func (e *Engine) OrderCompleted(string) {
	e.Invalidate()
}

// Suggest returns up to topN product ids likely to be bought alongside the
// cart contents, resolved to name and price. It never returns an error.
func (e *Engine) Suggest(ctx context.Context, cartProductIDs []string, topN int) []domain.Suggestion {
	cartIDs := normalizeIDs(cartProductIDs)
	if len(cartIDs) == 0 {
		return nil
	}
	if topN < 1 {
		topN = defaultTopN
	}

	key := e.buildCacheKey(cartIDs, topN)
	if cached, ok, err := e.cacheStore.Get(ctx, key); err == nil && ok {
		return cached
	}

	ids := e.suggestIDs(ctx, cartIDs, topN)
	suggestions := e.resolve(ctx, ids)

	_ = e.cacheStore.Set(ctx, key, suggestions, e.ttl)
	return suggestions
}

func (e *Engine) suggestIDs(ctx context.Context, cartIDs []string, topN int) []string {
	exclude := make(map[string]struct{}, len(cartIDs))
	for _, id := range cartIDs {
		exclude[id] = struct{}{}
	}

	completed, err := e.source.CountOrdersByStatus(ctx, domain.OrderStatusCompleted)
	if err != nil {
		return nil
	}

	if completed < e.threshold {
		return e.lowDataSuggest(ctx, cartIDs, exclude, topN)
	}

	result := e.pairSuggest(ctx, cartIDs, exclude, topN)
	if len(result) == 0 {
		result = e.topSellers(ctx, topN, exclude)
	}
	if len(result) > topN {
		result = result[:topN]
	}
	return result
}

// lowDataSuggest ranks same-category add-ons first (name order), then pads
// with overall top sellers. Category matches always outrank popularity.
func (e *Engine) lowDataSuggest(ctx context.Context, cartIDs []string, exclude map[string]struct{}, topN int) []string {
	result := make([]string, 0, topN)

	siblings, err := e.source.CategorySiblings(ctx, cartIDs)
	if err == nil {
		for _, product := range siblings {
			if len(result) >= topN {
				break
			}
			if _, skip := exclude[product.ID]; skip {
				continue
			}
			if !product.Active || product.Stock <= 0 {
				continue
			}
			result = append(result, product.ID)
			exclude[product.ID] = struct{}{}
		}
	}

	if len(result) < topN {
		for _, id := range e.topSellers(ctx, topN, exclude) {
			if len(result) >= topN {
				break
			}
			result = append(result, id)
		}
	}
	return result
}

// pairSuggest aggregates pair counts between cart items and candidates and
// ranks by score descending, ascending product id on ties.
func (e *Engine) pairSuggest(ctx context.Context, cartIDs []string, exclude map[string]struct{}, topN int) []string {
	pairCounts := e.pairTable(ctx)
	if len(pairCounts) == 0 {
		return nil
	}

	scores := make(map[string]int)
	for pair, count := range pairCounts {
		_, aInCart := exclude[pair.A]
		_, bInCart := exclude[pair.B]
		switch {
		case aInCart && !bInCart:
			scores[pair.B] += count
		case bInCart && !aInCart:
			scores[pair.A] += count
		}
	}
	if len(scores) == 0 {
		return nil
	}

	candidates := make([]string, 0, len(scores))
	for id := range scores {
		candidates = append(candidates, id)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if scores[candidates[i]] == scores[candidates[j]] {
			return candidates[i] < candidates[j]
		}
		return scores[candidates[i]] > scores[candidates[j]]
	})

	candidates = e.filterSellable(ctx, candidates)
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}

// pairTable returns the cached co-occurrence table, rebuilding it when the
// TTL has lapsed or after an invalidation. Safe for concurrent readers.
func (e *Engine) pairTable(ctx context.Context) map[pairKey]int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pairCounts != nil && e.now().Sub(e.builtAt) < e.ttl {
		return e.pairCounts
	}

	refs, err := e.source.CompletedOrderItemRefs(ctx, e.window)
	if err != nil {
		return nil
	}

	orderSets := make(map[string]map[string]struct{})
	for _, ref := range refs {
		set, ok := orderSets[ref.OrderID]
		if !ok {
			set = make(map[string]struct{})
			orderSets[ref.OrderID] = set
		}
		set[ref.ProductID] = struct{}{}
	}

	counts := make(map[pairKey]int)
	for _, set := range orderSets {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				counts[canonicalPair(ids[i], ids[j])]++
			}
		}
	}

	e.pairCounts = counts
	e.builtAt = e.now()
	return e.pairCounts
}

func (e *Engine) topSellers(ctx context.Context, topN int, exclude map[string]struct{}) []string {
	rows, err := e.source.TopSellers(ctx, topN+len(exclude)+5)
	if err != nil {
		return nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if _, skip := exclude[row.ProductID]; skip {
			continue
		}
		ids = append(ids, row.ProductID)
	}

	ids = e.filterSellable(ctx, ids)
	result := make([]string, 0, topN)
	for _, id := range ids {
		if len(result) >= topN {
			break
		}
		result = append(result, id)
		exclude[id] = struct{}{}
	}
	return result
}

// filterSellable drops candidates that are inactive or out of stock,
// preserving order. An unknown product is never suggested.
func (e *Engine) filterSellable(ctx context.Context, ids []string) []string {
	if len(ids) == 0 {
		return ids
	}
	products, err := e.source.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil
	}

	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		product, ok := products[id]
		if !ok || !product.Active || product.Stock <= 0 {
			continue
		}
		kept = append(kept, id)
	}
	return kept
}

// resolve maps product ids to display suggestions through the name/price
// read-through cache.
func (e *Engine) resolve(ctx context.Context, ids []string) []domain.Suggestion {
	if len(ids) == 0 {
		return []domain.Suggestion{}
	}
	e.loadCatalog(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	suggestions := make([]domain.Suggestion, 0, len(ids))
	for _, id := range ids {
		name, ok := e.names[id]
		if !ok {
			name = "Item " + id
		}
		suggestions = append(suggestions, domain.Suggestion{
			ProductID:  id,
			Name:       name,
			PriceCents: e.prices[id],
		})
	}
	return suggestions
}

func (e *Engine) loadCatalog(ctx context.Context) {
	e.mu.Lock()
	loaded := len(e.names) > 0
	e.mu.Unlock()
	if loaded {
		return
	}

	products, err := e.source.ListProducts(ctx)
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, product := range products {
		e.names[product.ID] = product.Name
		e.prices[product.ID] = product.PriceCents
	}
}

func (e *Engine) buildCacheKey(cartIDs []string, topN int) string {
	e.mu.Lock()
	gen := e.generation
	e.mu.Unlock()

	parts := make([]string, 0, len(cartIDs)+2)
	parts = append(parts, fmt.Sprintf("g:%d", gen))
	parts = append(parts, cartIDs...)
	parts = append(parts, fmt.Sprintf("n:%d", topN))

	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "pos:suggestions:" + hex.EncodeToString(hash[:])
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	normalized := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		normalized = append(normalized, id)
	}
	sort.Strings(normalized)
	return normalized
}
