package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Sternrassler/storefront-cache/pkg/invalidation"
	"github.com/Sternrassler/storefront-cache/pkg/policy"
	"github.com/Sternrassler/storefront-cache/pkg/swr"
	"github.com/Sternrassler/storefront-cache/pkg/warmup"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Cache keys, lifetimes and tags of the storefront resources.
const (
	HomepageKey        = "homepage_data"
	HomepageTTL        = time.Hour
	CategoryTreeKey    = "categories_tree"
	CategoryTreeTTL    = time.Hour
	ProductSectionsKey = "product_sections"
	ProductSectionsTTL = time.Hour
	NotificationBarKey = "notification_bar_active"
	NotificationBarTTL = time.Hour

	// homepageListLimit caps every product list on the homepage
	homepageListLimit = 10
)

var (
	HomepageTags        = []string{"homepage", "frontend", "products", "categories"}
	CategoryTreeTags    = []string{"categories", "frontend"}
	ProductSectionsTags = []string{"product_sections", "frontend", "products"}
	NotificationBarTags = []string{"notification_bars", "frontend"}
)

// homepageSection is one independently cached part of the homepage.
type homepageSection struct {
	key     string
	ttl     time.Duration
	produce func(s *Service) swr.Producer
}

// homepageSections are served by HomepageSections.
var homepageSections = map[string]homepageSection{
	"categories": {key: "homepage_categories", ttl: time.Hour, produce: func(s *Service) swr.Producer {
		return func(ctx context.Context) (any, error) { return s.catalog.CategoryTree(ctx) }
	}},
	"featured": {key: "homepage_featured", ttl: 15 * time.Minute, produce: func(s *Service) swr.Producer {
		return func(ctx context.Context) (any, error) { return s.catalog.FeaturedProducts(ctx, homepageListLimit) }
	}},
	"newArrivals": {key: "homepage_new_arrivals", ttl: 15 * time.Minute, produce: func(s *Service) swr.Producer {
		return func(ctx context.Context) (any, error) {
			return s.catalog.ProductsByType(ctx, TypeNewArrivals, homepageListLimit)
		}
	}},
	"notificationBar": {key: "homepage_notification_bar", ttl: 15 * time.Minute, produce: func(s *Service) swr.Producer {
		return func(ctx context.Context) (any, error) { return s.catalog.ActiveNotificationBar(ctx) }
	}},
}

// Homepage is the aggregated homepage payload.
type Homepage struct {
	Categories       []Category        `json:"categories"`
	FeaturedProducts []Product         `json:"featuredProducts"`
	NewArrivals      []Product         `json:"newArrivals"`
	BestSellers      []Product         `json:"bestSellers"`
	ProductSections  []ProductSection  `json:"productSections"`
	NotificationBars []NotificationBar `json:"notificationBars"`
}

// InvalidateRequest selects entries to drop. Every field is optional.
type InvalidateRequest struct {
	Tags    []string `json:"tags"`
	Keys    []string `json:"keys"`
	Pattern string   `json:"pattern"`
}

// InvalidateResult reports what an invalidation removed.
type InvalidateResult struct {
	TagsSupported bool `json:"tags_supported"`
	ByTags        int  `json:"by_tags"`
	ByKeys        int  `json:"by_keys"`
	ByPattern     int  `json:"by_pattern"`
}

// Service reads storefront resources through the SWR engine.
type Service struct {
	engine      *swr.Engine
	invalidator *invalidation.Manager
	policy      *policy.Policy
	catalog     Catalog
	warmer      *warmup.Warmer
	logger      zerolog.Logger
}

// NewService creates a storefront service.
func NewService(engine *swr.Engine, invalidator *invalidation.Manager, p *policy.Policy, catalog Catalog, logger zerolog.Logger) *Service {
	if engine == nil || invalidator == nil || catalog == nil {
		panic("storefront service dependencies cannot be nil")
	}
	if p == nil {
		p = policy.Default()
	}
	return &Service{
		engine:      engine,
		invalidator: invalidator,
		policy:      p,
		catalog:     catalog,
		warmer:      warmup.New(warmup.DefaultConfig(), logger),
		logger:      logger,
	}
}

// Homepage returns the aggregated homepage. forceRefresh drops the cached
// copy, and everything sharing its tags, first.
func (s *Service) Homepage(ctx context.Context, forceRefresh bool) (swr.Result, error) {
	if forceRefresh {
		s.forceRefresh(ctx, HomepageKey, HomepageTags)
	}
	return s.engine.GetOrRefresh(ctx, HomepageKey, HomepageTTL, s.produceHomepage, swr.WithTags(HomepageTags...))
}

// CategoryTree returns the active category tree.
func (s *Service) CategoryTree(ctx context.Context, forceRefresh bool) (swr.Result, error) {
	if forceRefresh {
		s.forceRefresh(ctx, CategoryTreeKey, CategoryTreeTags)
	}
	return s.engine.GetOrRefresh(ctx, CategoryTreeKey, CategoryTreeTTL, func(ctx context.Context) (any, error) {
		return s.catalog.CategoryTree(ctx)
	}, swr.WithTags(CategoryTreeTags...))
}

// ProductsByType returns up to limit products of productType. The TTL comes
// from the cache policy for the products resource.
func (s *Service) ProductsByType(ctx context.Context, productType string, limit int) (swr.Result, error) {
	key := policy.KeyFor("products_by_type", map[string]any{"type": productType, "limit": limit})
	ttl := s.policy.DurationFor("api/products/type/" + productType)
	tags := []string{"products", "product_type:" + productType}

	produce := func(ctx context.Context) (any, error) {
		return s.catalog.ProductsByType(ctx, productType, limit)
	}
	if ttl <= 0 {
		return s.uncached(ctx, produce)
	}
	return s.engine.GetOrRefresh(ctx, key, ttl, produce, swr.WithTags(tags...))
}

// ProductSections returns merchandised sections, optionally of one type.
func (s *Service) ProductSections(ctx context.Context, sectionType string, limit int, forceRefresh bool) (swr.Result, error) {
	key := ProductSectionsKey
	if sectionType != "" {
		key += "_type_" + sectionType
	}
	if limit > 0 {
		key += "_limit_" + strconv.Itoa(limit)
	}
	if forceRefresh {
		s.forceRefresh(ctx, key, ProductSectionsTags)
	}
	return s.engine.GetOrRefresh(ctx, key, ProductSectionsTTL, func(ctx context.Context) (any, error) {
		return s.catalog.ProductSections(ctx, sectionType, limit)
	}, swr.WithTags(ProductSectionsTags...))
}

// NotificationBar returns the active notification bar. The cached value is
// null when no bar is active.
func (s *Service) NotificationBar(ctx context.Context, forceRefresh bool) (swr.Result, error) {
	if forceRefresh {
		s.forceRefresh(ctx, NotificationBarKey, NotificationBarTags)
	}
	return s.engine.GetOrRefresh(ctx, NotificationBarKey, NotificationBarTTL, func(ctx context.Context) (any, error) {
		return s.catalog.ActiveNotificationBar(ctx)
	}, swr.WithTags(NotificationBarTags...))
}

// HomepageSections returns only the named homepage parts, each cached on
// its own without background refresh. Unknown names are ignored. The flag
// reports whether every returned part was served from the cache.
func (s *Service) HomepageSections(ctx context.Context, names []string) (map[string]json.RawMessage, bool, error) {
	parts := make(map[string]json.RawMessage, len(names))
	cached := true
	for _, name := range names {
		section, ok := homepageSections[name]
		if !ok {
			continue
		}
		res, err := s.engine.Remember(ctx, section.key, section.ttl, section.produce(s))
		if err != nil {
			return nil, false, fmt.Errorf("homepage section %s: %w", name, err)
		}
		parts[name] = res.Value
		cached = cached && res.Hit
	}
	return parts, cached && len(parts) > 0, nil
}

// Invalidate drops entries by tags, keys and pattern, in that order.
func (s *Service) Invalidate(ctx context.Context, req InvalidateRequest) (InvalidateResult, error) {
	result := InvalidateResult{TagsSupported: s.invalidator.SupportsTags()}

	if len(req.Tags) > 0 {
		n, err := s.invalidator.InvalidateByTags(ctx, req.Tags...)
		if err != nil {
			return result, err
		}
		result.ByTags = n
	}
	for _, key := range req.Keys {
		if err := s.invalidator.InvalidateByKey(ctx, key); err != nil {
			return result, err
		}
		result.ByKeys++
	}
	if req.Pattern != "" {
		n, err := s.invalidator.InvalidateByPattern(ctx, req.Pattern)
		if err != nil {
			return result, err
		}
		result.ByPattern = n
	}
	return result, nil
}

// WarmupJobs lists the entries primed by Warmup.
func (s *Service) WarmupJobs() []warmup.Job {
	jobs := []warmup.Job{
		{Name: HomepageKey, Warm: func(ctx context.Context) error {
			_, err := s.Homepage(ctx, false)
			return err
		}},
		{Name: CategoryTreeKey, Warm: func(ctx context.Context) error {
			_, err := s.CategoryTree(ctx, false)
			return err
		}},
		{Name: ProductSectionsKey, Warm: func(ctx context.Context) error {
			_, err := s.ProductSections(ctx, "", 0, false)
			return err
		}},
		{Name: NotificationBarKey, Warm: func(ctx context.Context) error {
			_, err := s.NotificationBar(ctx, false)
			return err
		}},
	}
	for _, productType := range []string{TypeFeatured, TypeNewArrivals, TypeBestSellers, TypeHotDeals} {
		jobs = append(jobs, warmup.Job{Name: "products_by_type:" + productType, Warm: func(ctx context.Context) error {
			_, err := s.ProductsByType(ctx, productType, defaultProductLimit)
			return err
		}})
	}
	return jobs
}

// Warmup primes every entry of WarmupJobs.
func (s *Service) Warmup(ctx context.Context) warmup.Report {
	return s.warmer.Run(ctx, s.WarmupJobs())
}

// forceRefresh drops key and its tags. Failures are logged: the following
// read then serves the cached copy instead of failing.
func (s *Service) forceRefresh(ctx context.Context, key string, tags []string) {
	if s.invalidator.SupportsTags() {
		if _, err := s.invalidator.InvalidateByTags(ctx, tags...); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Force refresh could not invalidate tags")
		}
		return
	}
	if err := s.invalidator.InvalidateByKey(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Force refresh could not invalidate key")
	}
}

// uncached runs produce without touching the cache.
func (s *Service) uncached(ctx context.Context, produce swr.Producer) (swr.Result, error) {
	value, err := produce(ctx)
	if err != nil {
		return swr.Result{}, fmt.Errorf("%w: %w", swr.ErrProducer, err)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return swr.Result{}, err
	}
	return swr.Result{Value: data}, nil
}

// produceHomepage gathers every homepage part concurrently.
func (s *Service) produceHomepage(ctx context.Context) (any, error) {
	var page Homepage
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		page.Categories, err = s.catalog.CategoryTree(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		page.FeaturedProducts, err = s.catalog.FeaturedProducts(ctx, homepageListLimit)
		return err
	})
	g.Go(func() error {
		var err error
		page.NewArrivals, err = s.catalog.ProductsByType(ctx, TypeNewArrivals, homepageListLimit)
		return err
	})
	g.Go(func() error {
		var err error
		page.BestSellers, err = s.catalog.ProductsByType(ctx, TypeBestSellers, homepageListLimit)
		return err
	})
	g.Go(func() error {
		var err error
		page.ProductSections, err = s.catalog.ProductSections(ctx, "", 0)
		return err
	})
	g.Go(func() error {
		bar, err := s.catalog.ActiveNotificationBar(ctx)
		if err != nil {
			return err
		}
		page.NotificationBars = []NotificationBar{}
		if bar != nil {
			page.NotificationBars = append(page.NotificationBars, *bar)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build homepage: %w", err)
	}
	return page, nil
}
