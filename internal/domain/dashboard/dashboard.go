package dashboard

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/fitstock/internal/domain/product"
)

const (
	// DefaultLowStockThreshold marks products with fewer units as low on stock.
	DefaultLowStockThreshold = 5

	recentPerKind = 5
	recentLimit   = 10
)

// ActivityKind tells purchases and sales apart in the activity feed.
type ActivityKind string

const (
	ActivityPurchase ActivityKind = "purchase"
	ActivitySale     ActivityKind = "sale"
)

// Activity is one entry of the recent activity feed.
type Activity struct {
	Kind        ActivityKind
	Description string
	Amount      decimal.Decimal
	At          time.Time
}

// Source provides the raw data a summary is built from.
type Source interface {
	List(ctx context.Context) ([]product.Product, error)
	UnitsSold(ctx context.Context) (int, error)
	RecentPurchases(ctx context.Context, limit int) ([]Activity, error)
	RecentSales(ctx context.Context, limit int) ([]Activity, error)
}

// Filter narrows the stock list. An empty or "all" Category matches every
// category; Search matches name or category case-insensitively.
type Filter struct {
	Category string
	Search   string
}

func (f Filter) match(p product.Product) bool {
	if c := strings.TrimSpace(f.Category); c != "" && !strings.EqualFold(c, "all") && p.Category != c {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Category), q)
}

// Summary is the inventory overview.
type Summary struct {
	TotalStock int
	TotalSold  int
	LowStock   []product.Product
	Categories []string
	Stock      []product.Product
	Recent     []Activity
}

// Service builds dashboard summaries.
type Service struct {
	src       Source
	threshold int
}

// NewService creates a dashboard Service. A threshold <= 0 selects
// DefaultLowStockThreshold.
func NewService(src Source, lowStockThreshold int) *Service {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &Service{src: src, threshold: lowStockThreshold}
}

// Summary loads every source concurrently and assembles the overview.
func (s *Service) Summary(ctx context.Context, f Filter) (*Summary, error) {
	var (
		products  []product.Product
		sold      int
		purchases []Activity
		sales     []Activity
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if products, err = s.src.List(ctx); err != nil {
			return errors.Wrap(err, "list products")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if sold, err = s.src.UnitsSold(ctx); err != nil {
			return errors.Wrap(err, "units sold")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if purchases, err = s.src.RecentPurchases(ctx, recentPerKind); err != nil {
			return errors.Wrap(err, "recent purchases")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if sales, err = s.src.RecentSales(ctx, recentPerKind); err != nil {
			return errors.Wrap(err, "recent sales")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := &Summary{
		TotalSold:  sold,
		LowStock:   []product.Product{},
		Categories: []string{},
		Stock:      []product.Product{},
		Recent:     mergeRecent(purchases, sales),
	}
	seen := make(map[string]struct{})
	for _, p := range products {
		sum.TotalStock += p.Quantity
		if p.Quantity < s.threshold {
			sum.LowStock = append(sum.LowStock, p)
		}
		if _, ok := seen[p.Category]; !ok {
			seen[p.Category] = struct{}{}
			sum.Categories = append(sum.Categories, p.Category)
		}
		if f.match(p) {
			sum.Stock = append(sum.Stock, p)
		}
	}
	slices.Sort(sum.Categories)

	return sum, nil
}

// mergeRecent combines both feeds newest first and keeps recentLimit entries.
func mergeRecent(purchases, sales []Activity) []Activity {
	all := make([]Activity, 0, len(purchases)+len(sales))
	all = append(all, purchases...)
	all = append(all, sales...)
	slices.SortStableFunc(all, func(a, b Activity) int {
		return cmp.Compare(b.At.UnixNano(), a.At.UnixNano())
	})
	if len(all) > recentLimit {
		all = all[:recentLimit]
	}
	return all
}
