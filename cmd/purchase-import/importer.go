package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/fitstock/internal/domain/purchase"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000
	maxLineSize   = 1 << 20
)

// recorder stores one purchase.
type recorder interface {
	Record(ctx context.Context, req purchase.RecordRequest) (*purchase.Purchase, error)
}

type importStats struct {
	recorded   atomic.Int64
	duplicates atomic.Int64
	invalid    atomic.Int64
}

// references remembers supplier references across all files. The bloom
// filter answers most lookups; a positive is confirmed against the exact
// set.
type references struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

func newReferences() *references {
	return &references{
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		exact:  make(map[string]struct{}),
	}
}

// claim reports whether ref is seen for the first time and marks it seen.
func (r *references) claim(ref string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.filter.TestString(ref) {
		if _, ok := r.exact[ref]; ok {
			return false
		}
	}
	r.filter.AddString(ref)
	r.exact[ref] = struct{}{}
	return true
}

// importFiles streams every file concurrently, one worker per file, and
// records each purchase whose reference was not seen before. Records
// without a reference are always recorded.
func importFiles(ctx context.Context, lg *zap.Logger, rec recorder, files []string) (*importStats, error) {
	var (
		stats = &importStats{}
		refs  = newReferences()
	)

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			return importFile(ctx, lg.With(zap.Int("file", i+1), zap.String("path", path)), rec, refs, stats, path)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func importFile(ctx context.Context, lg *zap.Logger, rec recorder, refs *references, stats *importStats, path string) error {
	var lines int
	err := streamGzFile(ctx, path, func(line []byte) error {
		lines++
		if lines%progressEvery == 0 {
			lg.Info("Import progress", zap.Int("lines", lines))
		}

		req, err := parseRecord(line)
		if err != nil {
			stats.invalid.Add(1)
			lg.Warn("Skipping malformed record", zap.Int("line", lines), zap.Error(err))
			return nil
		}
		if req.Reference != "" && !refs.claim(req.Reference) {
			stats.duplicates.Add(1)
			return nil
		}

		if _, err := rec.Record(ctx, req); err != nil {
			var fieldErr *purchase.InvalidFieldError
			switch {
			case errors.Is(err, purchase.ErrDuplicateReference):
				stats.duplicates.Add(1)
				return nil
			case errors.As(err, &fieldErr):
				stats.invalid.Add(1)
				lg.Warn("Skipping invalid record", zap.Int("line", lines), zap.Error(err))
				return nil
			}
			return errors.Wrapf(err, "record line %d", lines)
		}
		stats.recorded.Add(1)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "import %s", path)
	}

	lg.Info("File imported", zap.Int("lines", lines))
	return nil
}

// parseRecord decodes one JSON-lines supplier record.
func parseRecord(line []byte) (purchase.RecordRequest, error) {
	var req purchase.RecordRequest
	err := jx.DecodeBytes(line).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "reference":
			req.Reference, err = d.Str()
		case "product_name":
			req.ProductName, err = d.Str()
		case "category":
			req.Category, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		case "price_per_unit":
			req.PricePerUnit, err = decodeAmount(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func decodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	} else {
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = string(n)
	}
	return decimal.NewFromString(raw)
}

// streamGzFile opens a gzip-compressed file and calls fn for each non-blank
// line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
