package storefront

import "time"

// SampleCatalog returns a small seeded catalog for local runs and tests.
func SampleCatalog() *MemoryCatalog {
	electronics, fashion := 1, 2
	base := time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)
	price := func(v float64) *float64 { return &v }

	categories := []Category{
		{ID: electronics, Name: "Electronics", Slug: "electronics", Active: true, Order: 1},
		{ID: fashion, Name: "Fashion", Slug: "fashion", Active: true, Order: 2},
		{ID: 3, Name: "Smartphones", Slug: "smartphones", ParentID: &electronics, Active: true},
		{ID: 4, Name: "Laptops", Slug: "laptops", ParentID: &electronics, Active: true},
		{ID: 5, Name: "T-Shirts", Slug: "t-shirts", ParentID: &fashion, Active: true},
		{ID: 6, Name: "Archived", Slug: "archived", ParentID: &fashion, Active: false},
	}

	products := []Product{
		{ID: 1, Name: "Pixel Phone", Slug: "pixel-phone", Type: "smartphone", CategoryID: 3, BasePrice: 699, Active: true, Featured: true, TotalSold: 120, CreatedAt: base},
		{ID: 2, Name: "Ultrabook 14", Slug: "ultrabook-14", Type: "laptop", CategoryID: 4, BasePrice: 1299, SalePrice: price(1099), Active: true, TotalSold: 40, CreatedAt: base.Add(time.Hour)},
		{ID: 3, Name: "Logo Tee", Slug: "logo-tee", Type: "tshirt", CategoryID: 5, BasePrice: 25, Active: true, NewArrival: true, TotalSold: 300, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 4, Name: "Plain Tee", Slug: "plain-tee", Type: "tshirt", CategoryID: 5, BasePrice: 19, Active: true, Featured: true, NewArrival: true, TotalSold: 80, CreatedAt: base.Add(3 * time.Hour)},
		{ID: 5, Name: "Bottled Water 24x", Slug: "bottled-water-24", Type: "water", CategoryID: 2, BasePrice: 12, Active: true, BestSeller: true, TotalSold: 900, CreatedAt: base.Add(4 * time.Hour)},
		{ID: 6, Name: "Retired Phone", Slug: "retired-phone", Type: "smartphone", CategoryID: 3, BasePrice: 199, Active: false, CreatedAt: base},
	}

	sections := []ProductSection{
		{ID: 1, Title: "Featured Products", Type: TypeFeatured, DisplayOrder: 1, Active: true},
		{ID: 2, Title: "Hot Deals", Type: TypeHotDeals, DisplayOrder: 2, Active: true},
		{ID: 3, Title: "New Arrivals", Type: TypeNewArrivals, DisplayOrder: 3, Active: true},
		{ID: 4, Title: "Staff Picks", Type: "custom", DisplayOrder: 4, Active: true, ProductIDs: []int{2, 5}},
	}

	bar := &NotificationBar{ID: 1, Message: "Free shipping on orders over 50", Active: true}

	return NewMemoryCatalog(categories, products, sections, bar)
}
