package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/fitstock/db"
	"github.com/xenking/fitstock/internal/domain/auth"
	"github.com/xenking/fitstock/internal/domain/product"
	"github.com/xenking/fitstock/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "path to products JSON file (embedded catalog when empty)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or FITSTOCK_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or FITSTOCK_API_KEY_PEPPER env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("FITSTOCK_SEED_API_KEY")
	}
	if apiKey == "" {
		lg.Fatal("API key is required: set --api-key or FITSTOCK_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("FITSTOCK_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}

	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, productsFile, apiKey, pepper string) error {
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	data := db.SeedProducts
	if productsFile != "" {
		lg.Info("Reading products file", zap.String("path", productsFile))
		if data, err = os.ReadFile(productsFile); err != nil {
			return errors.Wrap(err, "read products file")
		}
	}
	products, err := parseProducts(data)
	if err != nil {
		return errors.Wrap(err, "parse products")
	}

	if err := seedCatalog(ctx, lg,
		postgres.NewCategoryRepository(pool),
		postgres.NewProductRepository(pool),
		products,
	); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := postgres.NewAPIKeyRepository(pool).Upsert(ctx, auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Default key",
		Scopes:  []string{"inventory", "sales"},
	}); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	lg.Info("Upserted API key", zap.String("id", "default"))

	return nil
}

type categoryEnsurer interface {
	Ensure(ctx context.Context, name string) error
}

type productUpserter interface {
	Upsert(ctx context.Context, p product.Product) error
}

// seedCatalog creates the categories the products use, then upserts the
// products by ID.
func seedCatalog(ctx context.Context, lg *zap.Logger, categories categoryEnsurer, products productUpserter, catalog []product.Product) error {
	seen := make(map[string]struct{})
	for _, p := range catalog {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		if err := categories.Ensure(ctx, p.Category); err != nil {
			return err
		}
	}
	lg.Info("Ensured categories", zap.Int("count", len(seen)))

	for _, p := range catalog {
		if err := products.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		lg.Debug("Upserted product", zap.String("id", p.ID), zap.String("name", p.Name))
	}
	lg.Info("Upserted products", zap.Int("count", len(catalog)))
	return nil
}

// parseProducts decodes a JSON array of products. Prices may be strings or
// numbers.
func parseProducts(data []byte) ([]product.Product, error) {
	var out []product.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var p product.Product
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				p.ID, err = d.Str()
			case "name":
				p.Name, err = d.Str()
			case "category":
				p.Category, err = d.Str()
			case "quantity":
				p.Quantity, err = d.Int()
			case "price":
				p.Price, err = decodePrice(d)
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		if p.ID == "" {
			return errors.Errorf("product %q has no id", p.Name)
		}
		if err := p.Validate(); err != nil {
			return errors.Wrapf(err, "product %s", p.ID)
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(string(n))
}
