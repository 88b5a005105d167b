package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/fitstock/internal/domain/category"
	"github.com/xenking/fitstock/internal/domain/dashboard"
	"github.com/xenking/fitstock/internal/domain/product"
	"github.com/xenking/fitstock/internal/domain/purchase"
	"github.com/xenking/fitstock/internal/domain/sale"
	"github.com/xenking/fitstock/internal/session"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// --- Fakes ---

type fakeProducts struct {
	mu       sync.Mutex
	products []product.Product
	updated  []product.Product
	err      error
}

func (f *fakeProducts) ListAvailable(context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range f.products {
		if p.Quantity > 0 {
			out = append(out, p)
		}
	}
	return out, f.err
}

func (f *fakeProducts) List(context.Context) ([]product.Product, error) {
	return f.products, f.err
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (f *fakeProducts) Update(_ context.Context, p product.Product) error {
	if _, err := f.GetByID(context.Background(), p.ID); err != nil {
		return err
	}
	f.updated = append(f.updated, p)
	return f.err
}

func (f *fakeProducts) Delete(_ context.Context, id string) error {
	if id == "sold" {
		return product.ErrInUse
	}
	_, err := f.GetByID(context.Background(), id)
	return err
}

// FetchAvailableProducts and SubmitSale make fakeProducts the sale backend
// as well.
func (f *fakeProducts) FetchAvailableProducts(ctx context.Context) ([]product.Product, error) {
	return f.ListAvailable(ctx)
}

func (f *fakeProducts) SubmitSale(_ context.Context, _ sale.Header, _ []sale.Item) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "sale-1", nil
}

type fakeCategories struct {
	err error
}

func (f *fakeCategories) List(context.Context) ([]category.Category, error) {
	return []category.Category{{ID: "c1", Name: "Cardio"}}, f.err
}

func (f *fakeCategories) Create(_ context.Context, name string) (*category.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &category.Category{ID: "c2", Name: name}, nil
}

func (f *fakeCategories) Rename(_ context.Context, _, _ string) error {
	return f.err
}

func (f *fakeCategories) Delete(_ context.Context, _ string) error {
	return f.err
}

type fakePurchases struct {
	recorded []*purchase.Purchase
}

func (f *fakePurchases) Record(_ context.Context, p *purchase.Purchase) error {
	f.recorded = append(f.recorded, p)
	return nil
}

type fakeDashboard struct {
	got dashboard.Filter
}

func (f *fakeDashboard) Summary(_ context.Context, filter dashboard.Filter) (*dashboard.Summary, error) {
	f.got = filter
	return &dashboard.Summary{
		TotalStock: 6,
		TotalSold:  2,
		Categories: []string{"Cardio", "Free Weights"},
		Recent: []dashboard.Activity{{
			Kind:        dashboard.ActivitySale,
			Description: "Sold 2 items to walk-in customer",
			Amount:      decimal.RequireFromString("20"),
			At:          fixedNow,
		}},
	}, nil
}

type testEnv struct {
	products *fakeProducts
	cats     *fakeCategories
	bought   *fakePurchases
	dash     *fakeDashboard
	mux      *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		products: &fakeProducts{products: []product.Product{
			{ID: "p1", Name: "Dumbbell 10kg", Category: "Free Weights", Quantity: 5, Price: decimal.RequireFromString("10")},
			{ID: "p2", Name: "Yoga Mat", Category: "Yoga", Quantity: 1, Price: decimal.RequireFromString("25.5")},
			{ID: "p3", Name: "Treadmill", Category: "Cardio", Quantity: 0, Price: decimal.RequireFromString("900")},
		}},
		cats:   &fakeCategories{},
		bought: &fakePurchases{},
		dash:   &fakeDashboard{},
		mux:    http.NewServeMux(),
	}

	sales, err := sale.NewService(env.products, sale.Options{
		Now:            func() time.Time { return fixedNow },
		TracerProvider: tracenoop.NewTracerProvider(),
		MeterProvider:  metricnoop.NewMeterProvider(),
	})
	require.NoError(t, err)

	NewHandler(Deps{
		Products:   env.products,
		Categories: category.NewService(env.cats),
		Purchases:  purchase.NewService(env.bought, func() time.Time { return fixedNow }),
		Dashboard:  env.dash,
		Sessions:   session.NewStore(sales, time.Hour, nil),
	}).Register(env.mux)
	return env
}

func (env *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}

// --- Response helpers ---

func objFields(t *testing.T, body []byte) map[string]jx.Raw {
	t.Helper()

	out := make(map[string]jx.Raw)
	require.NoError(t, jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		out[string(key)] = raw
		return nil
	}), string(body))
	return out
}

func strField(t *testing.T, fields map[string]jx.Raw, key string) string {
	t.Helper()

	raw, ok := fields[key]
	require.True(t, ok, "missing field %q", key)
	s, err := jx.DecodeBytes(raw).Str()
	require.NoError(t, err)
	return s
}

func arrLen(t *testing.T, raw jx.Raw) int {
	t.Helper()

	n := 0
	require.NoError(t, jx.DecodeBytes(raw).Arr(func(d *jx.Decoder) error {
		n++
		return d.Skip()
	}))
	return n
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, code int, message string) {
	t.Helper()

	require.Equal(t, code, rec.Code, rec.Body.String())
	fields := objFields(t, rec.Body.Bytes())
	assert.Equal(t, strconv.Itoa(code), string(fields["code"]))
	if message != "" {
		assert.Equal(t, message, strField(t, fields, "message"))
	}
}

// --- Tests ---

func TestProducts_ListAvailable(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 2, arrLen(t, rec.Body.Bytes()))
	assert.Contains(t, rec.Body.String(), `"price":"25.50"`)

	rec = env.do(t, http.MethodGet, "/api/products/all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, arrLen(t, rec.Body.Bytes()))
}

func TestProducts_Get(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/products/p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dumbbell 10kg", strField(t, objFields(t, rec.Body.Bytes()), "name"))

	assertError(t, env.do(t, http.MethodGet, "/api/products/nope", ""), http.StatusNotFound, "product not found")
}

func TestProducts_Update(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		body     string
		wantCode int
	}{
		{
			name:     "ok",
			target:   "/api/products/p1",
			body:     `{"name":" Dumbbell 12kg ","category":"Free Weights","quantity":7,"price":"12.5"}`,
			wantCode: http.StatusOK,
		},
		{
			name:     "numeric price",
			target:   "/api/products/p1",
			body:     `{"name":"Dumbbell","category":"Free Weights","quantity":7,"price":12.5}`,
			wantCode: http.StatusOK,
		},
		{
			name:     "negative quantity",
			target:   "/api/products/p1",
			body:     `{"name":"Dumbbell","category":"Free Weights","quantity":-1,"price":"1"}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "missing quantity",
			target:   "/api/products/p1",
			body:     `{"name":"Dumbbell","category":"Free Weights","price":"1"}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "sub-cent price",
			target:   "/api/products/p1",
			body:     `{"name":"Dumbbell","category":"Free Weights","quantity":1,"price":"12.345"}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "bad price",
			target:   "/api/products/p1",
			body:     `{"name":"Dumbbell","category":"Free Weights","quantity":1,"price":"abc"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed",
			target:   "/api/products/p1",
			body:     `{"name":`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown",
			target:   "/api/products/nope",
			body:     `{"name":"X","category":"Y","quantity":1,"price":"1"}`,
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPut, tt.target, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	t.Run("trims and echoes", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPut, "/api/products/p1", tests[0].body)
		require.Equal(t, http.StatusOK, rec.Code)

		fields := objFields(t, rec.Body.Bytes())
		assert.Equal(t, "Dumbbell 12kg", strField(t, fields, "name"))
		assert.Equal(t, "12.50", strField(t, fields, "price"))
		require.Len(t, env.products.updated, 1)
		assert.Equal(t, 7, env.products.updated[0].Quantity)
	})
}

func TestProducts_Delete(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/products/p1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assertError(t, env.do(t, http.MethodDelete, "/api/products/sold", ""), http.StatusConflict, "product is referenced by sales")
}

func TestCategories(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodGet, "/api/categories", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"id":"c1","name":"Cardio"}]`, rec.Body.String())
	})

	t.Run("create", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/categories", `{"name":"  Strength "}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"id":"c2","name":"Strength"}`, rec.Body.String())
	})

	t.Run("blank name", func(t *testing.T) {
		env := newTestEnv(t)
		assertError(t, env.do(t, http.MethodPost, "/api/categories", `{"name":"  "}`),
			http.StatusUnprocessableEntity, "category name is required")
	})

	t.Run("duplicate", func(t *testing.T) {
		env := newTestEnv(t)
		env.cats.err = category.ErrExists
		assertError(t, env.do(t, http.MethodPost, "/api/categories", `{"name":"Cardio"}`),
			http.StatusConflict, "a category with this name already exists")
	})

	t.Run("rename", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPut, "/api/categories/c1", `{"name":"Endurance"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":"c1","name":"Endurance"}`, rec.Body.String())
	})

	t.Run("rename unknown", func(t *testing.T) {
		env := newTestEnv(t)
		env.cats.err = category.ErrNotFound
		assertError(t, env.do(t, http.MethodPut, "/api/categories/zz", `{"name":"Endurance"}`),
			http.StatusNotFound, "category not found")
	})

	t.Run("delete in use", func(t *testing.T) {
		env := newTestEnv(t)
		env.cats.err = category.ErrInUse
		assertError(t, env.do(t, http.MethodDelete, "/api/categories/c1", ""),
			http.StatusConflict, "category is in use by products")
	})

	t.Run("missing body", func(t *testing.T) {
		env := newTestEnv(t)
		assertError(t, env.do(t, http.MethodPost, "/api/categories", ""),
			http.StatusBadRequest, "request body is required")
	})
}

func TestPurchases_Record(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/purchases",
		`{"product_name":"Kettlebell","category":"Free Weights","quantity":4,"price_per_unit":"12.25"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	fields := objFields(t, rec.Body.Bytes())
	assert.Equal(t, "49.00", strField(t, fields, "total_cost"))
	assert.Equal(t, "2025-03-14T09:30:00Z", strField(t, fields, "created_at"))
	require.Len(t, env.bought.recorded, 1)
	assert.Equal(t, "Kettlebell", env.bought.recorded[0].ProductName)

	rec = env.do(t, http.MethodPost, "/api/purchases",
		`{"product_name":"Kettlebell","category":"Free Weights","quantity":0,"price_per_unit":"12.25"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/purchases", `{"quantity":"four"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/dashboard?category=Cardio&q=tread", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dashboard.Filter{Category: "Cardio", Search: "tread"}, env.dash.got)

	fields := objFields(t, rec.Body.Bytes())
	assert.Equal(t, jx.Raw("6"), fields["total_stock"])
	assert.Equal(t, 2, arrLen(t, fields["categories"]))
	assert.Contains(t, string(fields["recent"]), `"amount":"20.00"`)
}

func TestSales_Flow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/sales", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	id := strField(t, objFields(t, rec.Body.Bytes()), "id")
	base := "/api/sales/" + id

	// Two additions of the same product consolidate into one line.
	rec = env.do(t, http.MethodPost, base+"/lines", `{"product_id":"p1","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPost, base+"/lines", `{"product_id":"p1","quantity":1,"unit_price":"9.00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fields := objFields(t, rec.Body.Bytes())
	assert.Equal(t, 1, arrLen(t, fields["lines"]))
	assert.Equal(t, "27.00", strField(t, fields, "total"))
	line := objFields(t, fields["line"])
	assert.Equal(t, jx.Raw("3"), line["quantity"])

	// Stock ceiling.
	rec = env.do(t, http.MethodPost, base+"/lines", `{"product_id":"p1","quantity":3}`)
	assertError(t, rec, http.StatusUnprocessableEntity, "insufficient stock for product p1: only 2 more available")

	// Discount above list price.
	rec = env.do(t, http.MethodPost, base+"/lines", `{"product_id":"p2","quantity":1,"unit_price":30}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Out of stock products are not in the catalog.
	rec = env.do(t, http.MethodPost, base+"/lines", `{"product_id":"p3","quantity":1}`)
	assertError(t, rec, http.StatusNotFound, "product p3 not found")

	rec = env.do(t, http.MethodPost, base+"/lines", `{"product_id":"p1","quantity":0}`)
	assertError(t, rec, http.StatusUnprocessableEntity, "quantity must be greater than 0")

	rec = env.do(t, http.MethodPost, base+"/lines", `{"product_id":"p1","quantity":9223372036854775807}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/lines", `{"product_id":"p2","quantity":1,"unit_price":"0.005"}`)
	assertError(t, rec, http.StatusUnprocessableEntity, "unit price must be a whole number of cents")

	rec = env.do(t, http.MethodPost, base+"/lines", `{"product_id":"p2","quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	lineID := string(objFields(t, objFields(t, rec.Body.Bytes())["line"])["id"])

	rec = env.do(t, http.MethodDelete, base+"/lines/"+lineID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, jx.Raw("true"), objFields(t, rec.Body.Bytes())["removed"])

	rec = env.do(t, http.MethodDelete, base+"/lines/"+lineID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, jx.Raw("false"), objFields(t, rec.Body.Bytes())["removed"])

	rec = env.do(t, http.MethodDelete, base+"/lines/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Invoice leaves the cart unchanged.
	rec = env.do(t, http.MethodPost, base+"/invoice?format=text", `{"customer_name":"Asha"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	number := rec.Header().Get("X-Invoice-Number")
	require.NotEmpty(t, number)
	assert.Equal(t, `attachment; filename=invoice-`+number+`.txt`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "Asha")

	rec = env.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "27.00", strField(t, objFields(t, rec.Body.Bytes()), "total"))

	rec = env.do(t, http.MethodPost, base+"/submit", `{"customer_name":"Asha","customer_phone":"555"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	fields = objFields(t, rec.Body.Bytes())
	assert.Equal(t, "sale-1", strField(t, fields, "sale_id"))
	assert.Equal(t, 0, arrLen(t, fields["lines"]))

	rec = env.do(t, http.MethodPost, base+"/submit", "")
	assertError(t, rec, http.StatusUnprocessableEntity, "cart is empty")

	rec = env.do(t, http.MethodPost, base+"/invoice", "")
	assertError(t, rec, http.StatusUnprocessableEntity, "cart is empty")
}

func TestSales_InvoicePDF(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/sales", "")
	id := strField(t, objFields(t, rec.Body.Bytes()), "id")
	rec = env.do(t, http.MethodPost, "/api/sales/"+id+"/lines", `{"product_id":"p2","quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sales/"+id+"/invoice", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = env.do(t, http.MethodPost, "/api/sales/"+id+"/invoice?format=docx", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSales_SubmitFailureKeepsCart(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/sales", "")
	id := strField(t, objFields(t, rec.Body.Bytes()), "id")
	rec = env.do(t, http.MethodPost, "/api/sales/"+id+"/lines", `{"product_id":"p1","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	env.products.err = errors.New("connection reset")
	rec = env.do(t, http.MethodPost, "/api/sales/"+id+"/submit", "")
	assertError(t, rec, http.StatusBadGateway, msgSubmissionFailed)

	env.products.err = nil
	rec = env.do(t, http.MethodGet, "/api/sales/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "20.00", strField(t, objFields(t, rec.Body.Bytes()), "total"))
}

func TestSales_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/api/sales/nope"},
		{http.MethodDelete, "/api/sales/nope"},
		{http.MethodPost, "/api/sales/nope/lines"},
		{http.MethodPost, "/api/sales/nope/submit"},
	} {
		rec := env.do(t, tc.method, tc.target, `{"product_id":"p1","quantity":1}`)
		assertError(t, rec, http.StatusNotFound, "sale session not found")
	}
}

func TestSales_Discard(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/sales", "")
	id := strField(t, objFields(t, rec.Body.Bytes()), "id")

	rec = env.do(t, http.MethodDelete, "/api/sales/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/sales/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "wrapped sentinel keeps own message",
			err:      errors.Wrap(category.ErrInUse, "delete category"),
			wantCode: http.StatusConflict,
			wantMsg:  "category is in use by products",
		},
		{
			name:     "submission in progress",
			err:      sale.ErrSubmissionInProgress,
			wantCode: http.StatusConflict,
			wantMsg:  "submission in progress",
		},
		{
			name:     "duplicate reference",
			err:      errors.Wrap(purchase.ErrDuplicateReference, "record purchase"),
			wantCode: http.StatusConflict,
		},
		{
			name:     "invalid field",
			err:      &purchase.InvalidFieldError{Field: "quantity", Reason: "must be greater than 0"},
			wantCode: http.StatusUnprocessableEntity,
			wantMsg:  "quantity: must be greater than 0",
		},
		{
			name:     "submission failed hides backend error",
			err:      &sale.SubmissionFailedError{Err: errors.New("pq: deadlock")},
			wantCode: http.StatusBadGateway,
			wantMsg:  msgSubmissionFailed,
		},
		{
			name:     "unknown",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantMsg:  msgInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := classify(tt.err)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, msg)
			}
		})
	}
}
