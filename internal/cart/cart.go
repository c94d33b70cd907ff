// Package cart holds the in-progress order being assembled at the terminal.
// A cart is request/session scoped and never shared between goroutines;
// totals are always derived, never stored.
package cart

import (
	"math"
	"sort"

	"kedaikopi/backend/internal/domain"
)

type Cart struct {
	items    map[string]*domain.LineItem
	discount domain.Discount
}

func New() *Cart {
	return &Cart{
		items:    make(map[string]*domain.LineItem),
		discount: domain.Discount{Mode: domain.DiscountModeAmount},
	}
}

// FromSnapshot rebuilds a cart from a draft payload. Lines with an empty
// product id or non-positive quantity are dropped rather than rejected.
func FromSnapshot(snap domain.CartSnapshot) *Cart {
	c := New()
	for _, item := range snap.Items {
		if item.ProductID == "" || item.Qty < 1 {
			continue
		}
		line := item
		c.items[item.ProductID] = &line
	}
	c.SetDiscount(snap.Discount)
	return c
}

// AddItem inserts the product with qty 1, or bumps the quantity when the
// product is already in the cart.
func (c *Cart) AddItem(productID string, name string, unitPriceCents int64) {
	if productID == "" {
		return
	}
	if line, ok := c.items[productID]; ok {
		line.Qty++
		return
	}
	c.items[productID] = &domain.LineItem{
		ProductID:      productID,
		Name:           name,
		UnitPriceCents: unitPriceCents,
		Qty:            1,
	}
}

func (c *Cart) RemoveItem(productID string) {
	delete(c.items, productID)
}

// ChangeQty adjusts a line's quantity by delta; a quantity at or below zero
// removes the line.
func (c *Cart) ChangeQty(productID string, delta int) {
	line, ok := c.items[productID]
	if !ok {
		return
	}
	line.Qty += delta
	if line.Qty <= 0 {
		delete(c.items, productID)
	}
}

func (c *Cart) SetNote(productID string, note string) {
	if line, ok := c.items[productID]; ok {
		line.Note = note
	}
}

func (c *Cart) SetDiscount(d domain.Discount) {
	if d.Mode != domain.DiscountModePercent {
		d.Mode = domain.DiscountModeAmount
	}
	c.discount = d
}

func (c *Cart) Discount() domain.Discount {
	return c.discount
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) Clear() {
	c.items = make(map[string]*domain.LineItem)
	c.discount = domain.Discount{Mode: domain.DiscountModeAmount}
}

// Items returns the line items sorted by product id so callers see a
// stable order regardless of map iteration.
func (c *Cart) Items() []domain.LineItem {
	items := make([]domain.LineItem, 0, len(c.items))
	for _, line := range c.items {
		items = append(items, *line)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items
}

func (c *Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Cart) Snapshot() domain.CartSnapshot {
	return domain.CartSnapshot{
		Items:    c.Items(),
		Discount: c.discount,
	}
}

// Totals derives subtotal, clamped discount, tax and total. An amount
// discount is clamped to [0, subtotal]; a percent discount is clamped to
// [0, 100] before conversion. Tax is carried as a field but always zero in
// current scope. The grand total never goes below zero.
func (c *Cart) Totals() domain.Totals {
	var subtotal int64
	for _, line := range c.items {
		subtotal += int64(line.Qty) * line.UnitPriceCents
	}

	var discount int64
	switch c.discount.Mode {
	case domain.DiscountModePercent:
		pct := clampFloat(c.discount.Percent, 0, 100)
		discount = int64(math.Round(float64(subtotal) * pct / 100))
	default:
		discount = clampInt64(c.discount.AmountCents, 0, subtotal)
	}

	tax := int64(0)
	total := subtotal - discount + tax
	if total < 0 {
		total = 0
	}

	return domain.Totals{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TaxCents:      tax,
		TotalCents:    total,
	}
}

func clampInt64(val int64, minVal int64, maxVal int64) int64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func clampFloat(val float64, minVal float64, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
