package main

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/fitstock/db"
	"github.com/xenking/fitstock/internal/domain/product"
)

type recorder struct {
	categories []string
	products   []product.Product
}

func (r *recorder) Ensure(_ context.Context, name string) error {
	r.categories = append(r.categories, name)
	return nil
}

func (r *recorder) Upsert(_ context.Context, p product.Product) error {
	r.products = append(r.products, p)
	return nil
}

func TestParseProducts_Embedded(t *testing.T) {
	products, err := parseProducts(db.SeedProducts)
	require.NoError(t, err)
	require.Len(t, products, 11)

	assert.Equal(t, "bench-adjustable", products[0].ID)
	assert.True(t, decimal.RequireFromString("12999").Equal(products[0].Price))
	assert.Equal(t, 8, products[0].Quantity)
}

func TestParseProducts(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "numeric price", in: `[{"id":"a","name":"A","category":"C","quantity":1,"price":10.5}]`},
		{name: "unknown fields skipped", in: `[{"id":"a","name":"A","category":"C","quantity":1,"price":"1","image":{"x":1}}]`},
		{name: "missing id", in: `[{"name":"A","category":"C","quantity":1,"price":"1"}]`, wantErr: true},
		{name: "negative quantity", in: `[{"id":"a","name":"A","category":"C","quantity":-1,"price":"1"}]`, wantErr: true},
		{name: "bad price", in: `[{"id":"a","name":"A","category":"C","quantity":1,"price":"x"}]`, wantErr: true},
		{name: "not an array", in: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseProducts([]byte(tt.in))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSeedCatalog_EnsuresEachCategoryOnce(t *testing.T) {
	products, err := parseProducts(db.SeedProducts)
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, seedCatalog(context.Background(), zaptest.NewLogger(t), rec, rec, products))

	assert.ElementsMatch(t, []string{"Benches", "Weights", "Cardio", "Accessories"}, rec.categories)
	assert.Len(t, rec.products, len(products))
}
