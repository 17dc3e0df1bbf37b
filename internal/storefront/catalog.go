// Package storefront serves the cached storefront read API: homepage
// aggregation, the category tree and product listings.
package storefront

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Category is a catalog category. Subcategories are only set in trees.
type Category struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	ParentID      *int       `json:"parent_id,omitempty"`
	Active        bool       `json:"is_active"`
	Order         int        `json:"order"`
	Subcategories []Category `json:"subcategories,omitempty"`
}

// Product is a sellable catalog item.
type Product struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Type       string    `json:"type,omitempty"`
	CategoryID int       `json:"category_id"`
	BasePrice  float64   `json:"base_price"`
	SalePrice  *float64  `json:"sale_price,omitempty"`
	Active     bool      `json:"is_active"`
	Featured   bool      `json:"is_featured"`
	NewArrival bool      `json:"is_new_arrival"`
	BestSeller bool      `json:"is_best_seller"`
	HotDeal    bool      `json:"is_hot_deal"`
	TotalSold  int       `json:"total_sold"`
	CreatedAt  time.Time `json:"created_at"`
}

// OnSale reports whether the product is discounted.
func (p Product) OnSale() bool {
	return p.SalePrice != nil && *p.SalePrice < p.BasePrice
}

// ProductSection is a merchandised homepage block.
type ProductSection struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Type         string    `json:"type"`
	DisplayOrder int       `json:"display_order"`
	Active       bool      `json:"is_active"`
	ProductIDs   []int     `json:"product_ids,omitempty"`
	Products     []Product `json:"products"`
}

// NotificationBar is the site-wide announcement strip.
type NotificationBar struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
	Active  bool   `json:"is_active"`
}

// Product types understood by ProductsByType besides plain product types.
const (
	TypeFeatured    = "featured"
	TypeNewArrivals = "new_arrivals"
	TypeBestSellers = "best_sellers"
	TypeHotDeals    = "hot_deals"
)

// Catalog is the read side of the product database.
type Catalog interface {
	CategoryTree(ctx context.Context) ([]Category, error)
	FeaturedProducts(ctx context.Context, limit int) ([]Product, error)
	ProductsByType(ctx context.Context, productType string, limit int) ([]Product, error)
	ProductSections(ctx context.Context, sectionType string, limit int) ([]ProductSection, error)
	ActiveNotificationBar(ctx context.Context) (*NotificationBar, error)
}

// MemoryCatalog is an in-memory Catalog.
type MemoryCatalog struct {
	mu         sync.RWMutex
	categories []Category
	products   []Product
	sections   []ProductSection
	bar        *NotificationBar
}

// NewMemoryCatalog creates a catalog over the given records.
func NewMemoryCatalog(categories []Category, products []Product, sections []ProductSection, bar *NotificationBar) *MemoryCatalog {
	return &MemoryCatalog{
		categories: categories,
		products:   products,
		sections:   sections,
		bar:        bar,
	}
}

// CategoryTree returns active root categories with their active
// subcategories, both ordered by name.
func (c *MemoryCatalog) CategoryTree(ctx context.Context) ([]Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	children := make(map[int][]Category)
	var roots []Category
	for _, cat := range c.categories {
		if !cat.Active {
			continue
		}
		if cat.ParentID == nil {
			roots = append(roots, cat)
			continue
		}
		children[*cat.ParentID] = append(children[*cat.ParentID], cat)
	}

	byName := func(cats []Category) {
		sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	}
	byName(roots)
	for i := range roots {
		subs := children[roots[i].ID]
		byName(subs)
		roots[i].Subcategories = subs
	}
	if roots == nil {
		roots = []Category{}
	}
	return roots, nil
}

// FeaturedProducts returns the newest featured products.
func (c *MemoryCatalog) FeaturedProducts(ctx context.Context, limit int) ([]Product, error) {
	return c.ProductsByType(ctx, TypeFeatured, limit)
}

// ProductsByType returns active products for a merchandising type or a plain
// product type. Hot deals fall back to discounted products and best sellers
// to the most sold products when no product carries the flag.
func (c *MemoryCatalog) ProductsByType(ctx context.Context, productType string, limit int) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Product
	switch productType {
	case TypeFeatured:
		out = c.filter(func(p Product) bool { return p.Featured })
		newestFirst(out)
	case TypeNewArrivals, "new":
		out = c.filter(func(p Product) bool { return p.NewArrival })
		newestFirst(out)
	case TypeHotDeals:
		out = c.filter(func(p Product) bool { return p.HotDeal })
		if len(out) == 0 {
			out = c.filter(Product.OnSale)
		}
		newestFirst(out)
	case TypeBestSellers, "bestseller":
		out = c.filter(func(p Product) bool { return p.BestSeller })
		if len(out) == 0 {
			out = c.filter(func(Product) bool { return true })
			sort.SliceStable(out, func(i, j int) bool { return out[i].TotalSold > out[j].TotalSold })
		}
	default:
		out = c.filter(func(p Product) bool { return p.Type == productType })
		newestFirst(out)
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []Product{}
	}
	return out, nil
}

// ProductSections returns active sections in display order with their
// products resolved. An empty sectionType selects every section.
func (c *MemoryCatalog) ProductSections(ctx context.Context, sectionType string, limit int) ([]ProductSection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	var sections []ProductSection
	for _, s := range c.sections {
		if s.Active && (sectionType == "" || s.Type == sectionType) {
			sections = append(sections, s)
		}
	}
	c.mu.RUnlock()

	sort.SliceStable(sections, func(i, j int) bool { return sections[i].DisplayOrder < sections[j].DisplayOrder })

	perSection := limit
	if perSection <= 0 {
		perSection = 8
	}
	for i := range sections {
		products, err := c.sectionProducts(ctx, sections[i], perSection)
		if err != nil {
			return nil, err
		}
		sections[i].Products = products
	}
	if sections == nil {
		sections = []ProductSection{}
	}
	return sections, nil
}

// ActiveNotificationBar returns the active bar, or nil.
func (c *MemoryCatalog) ActiveNotificationBar(ctx context.Context) (*NotificationBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.bar == nil || !c.bar.Active {
		return nil, nil
	}
	bar := *c.bar
	return &bar, nil
}

// SetNotificationBar replaces the notification bar.
func (c *MemoryCatalog) SetNotificationBar(bar *NotificationBar) {
	c.mu.Lock()
	c.bar = bar
	c.mu.Unlock()
}

// AddProduct appends a product.
func (c *MemoryCatalog) AddProduct(p Product) {
	c.mu.Lock()
	c.products = append(c.products, p)
	c.mu.Unlock()
}

func (c *MemoryCatalog) sectionProducts(ctx context.Context, s ProductSection, limit int) ([]Product, error) {
	switch s.Type {
	case TypeFeatured, TypeHotDeals, TypeNewArrivals, TypeBestSellers:
		return c.ProductsByType(ctx, s.Type, limit)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	wanted := make(map[int]bool, len(s.ProductIDs))
	for _, id := range s.ProductIDs {
		wanted[id] = true
	}
	out := c.filter(func(p Product) bool { return wanted[p.ID] })
	if out == nil {
		out = []Product{}
	}
	return out, nil
}

// filter returns active products matching keep. Callers hold c.mu.
func (c *MemoryCatalog) filter(keep func(Product) bool) []Product {
	var out []Product
	for _, p := range c.products {
		if p.Active && keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func newestFirst(products []Product) {
	sort.SliceStable(products, func(i, j int) bool { return products[i].CreatedAt.After(products[j].CreatedAt) })
}
