package storefront

import (
	"context"
	"testing"
	"time"
)

func productIDs(products []Product) []int {
	ids := make([]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMemoryCatalog_CategoryTree(t *testing.T) {
	tree, err := SampleCatalog().CategoryTree(context.Background())
	if err != nil {
		t.Fatalf("CategoryTree() error = %v", err)
	}

	if len(tree) != 2 || tree[0].Name != "Electronics" || tree[1].Name != "Fashion" {
		t.Fatalf("roots = %+v", tree)
	}
	if subs := tree[0].Subcategories; len(subs) != 2 || subs[0].Name != "Laptops" || subs[1].Name != "Smartphones" {
		t.Errorf("Electronics subcategories = %+v", subs)
	}
	if subs := tree[1].Subcategories; len(subs) != 1 || subs[0].Slug != "t-shirts" {
		t.Errorf("Fashion subcategories = %+v, inactive ones must be skipped", subs)
	}
}

func TestMemoryCatalog_ProductsByType(t *testing.T) {
	tests := []struct {
		productType string
		limit       int
		want        []int
	}{
		{productType: TypeFeatured, want: []int{4, 1}},
		{productType: TypeNewArrivals, want: []int{4, 3}},
		{productType: "new", want: []int{4, 3}},
		{productType: TypeHotDeals, want: []int{2}},
		{productType: TypeBestSellers, want: []int{5}},
		{productType: "tshirt", want: []int{4, 3}},
		{productType: "tshirt", limit: 1, want: []int{4}},
		{productType: "smartphone", want: []int{1}},
		{productType: "unknown", want: []int{}},
	}

	c := SampleCatalog()
	for _, tt := range tests {
		t.Run(tt.productType, func(t *testing.T) {
			got, err := c.ProductsByType(context.Background(), tt.productType, tt.limit)
			if err != nil {
				t.Fatalf("ProductsByType() error = %v", err)
			}
			if got == nil {
				t.Fatal("ProductsByType() = nil, want empty slice")
			}
			if ids := productIDs(got); !equalInts(ids, tt.want) {
				t.Errorf("ProductsByType(%q, %d) = %v, want %v", tt.productType, tt.limit, ids, tt.want)
			}
		})
	}
}

func TestMemoryCatalog_BestSellersFallback(t *testing.T) {
	c := NewMemoryCatalog(nil, []Product{
		{ID: 1, Active: true, TotalSold: 5},
		{ID: 2, Active: true, TotalSold: 50},
		{ID: 3, Active: false, TotalSold: 500},
		{ID: 4, Active: true, TotalSold: 20},
	}, nil, nil)

	got, err := c.ProductsByType(context.Background(), TypeBestSellers, 2)
	if err != nil {
		t.Fatalf("ProductsByType() error = %v", err)
	}
	if ids := productIDs(got); !equalInts(ids, []int{2, 4}) {
		t.Errorf("best sellers = %v, want most sold active products", ids)
	}
}

func TestMemoryCatalog_ProductSections(t *testing.T) {
	c := SampleCatalog()

	sections, err := c.ProductSections(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("ProductSections() error = %v", err)
	}
	if len(sections) != 4 {
		t.Fatalf("len(sections) = %d, want 4", len(sections))
	}
	for i, s := range sections {
		if s.DisplayOrder != i+1 {
			t.Errorf("sections[%d].DisplayOrder = %d", i, s.DisplayOrder)
		}
	}
	if ids := productIDs(sections[1].Products); !equalInts(ids, []int{2}) {
		t.Errorf("hot deals products = %v, want on-sale fallback", ids)
	}

	custom, err := c.ProductSections(context.Background(), "custom", 0)
	if err != nil {
		t.Fatalf("ProductSections(custom) error = %v", err)
	}
	if len(custom) != 1 || custom[0].Title != "Staff Picks" {
		t.Fatalf("custom sections = %+v", custom)
	}
	if ids := productIDs(custom[0].Products); !equalInts(ids, []int{2, 5}) {
		t.Errorf("Staff Picks products = %v, want [2 5]", ids)
	}
}

func TestMemoryCatalog_NotificationBar(t *testing.T) {
	c := SampleCatalog()
	ctx := context.Background()

	bar, err := c.ActiveNotificationBar(ctx)
	if err != nil || bar == nil {
		t.Fatalf("ActiveNotificationBar() = %v, %v", bar, err)
	}

	c.SetNotificationBar(&NotificationBar{ID: 2, Message: "paused", Active: false})
	if bar, _ := c.ActiveNotificationBar(ctx); bar != nil {
		t.Errorf("inactive bar returned: %+v", bar)
	}
}

func TestMemoryCatalog_AddProduct(t *testing.T) {
	c := SampleCatalog()
	c.AddProduct(Product{ID: 7, Type: "tshirt", Active: true, CreatedAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)})

	got, _ := c.ProductsByType(context.Background(), "tshirt", 1)
	if ids := productIDs(got); !equalInts(ids, []int{7}) {
		t.Errorf("newest tshirt = %v, want [7]", ids)
	}
}

func TestMemoryCatalog_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := SampleCatalog()
	if _, err := c.CategoryTree(ctx); err == nil {
		t.Error("CategoryTree() should fail on a cancelled context")
	}
	if _, err := c.ProductsByType(ctx, TypeFeatured, 1); err == nil {
		t.Error("ProductsByType() should fail on a cancelled context")
	}
	if _, err := c.ProductSections(ctx, "", 0); err == nil {
		t.Error("ProductSections() should fail on a cancelled context")
	}
	if _, err := c.ActiveNotificationBar(ctx); err == nil {
		t.Error("ActiveNotificationBar() should fail on a cancelled context")
	}
}
