package handler

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/fitstock/internal/domain/category"
	"github.com/xenking/fitstock/internal/domain/dashboard"
	"github.com/xenking/fitstock/internal/domain/product"
	"github.com/xenking/fitstock/internal/domain/purchase"
	"github.com/xenking/fitstock/internal/domain/sale"
)

const maxBodySize = 1 << 20

// requestError is a problem with the request itself, reported with its own
// status code and message.
type requestError struct {
	code int
	msg  string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return &requestError{code: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func unprocessable(msg string) error {
	return &requestError{code: http.StatusUnprocessableEntity, msg: msg}
}

// readObject decodes a JSON object body, calling field for every key. An
// empty body counts as {} when optional is set.
func readObject(w http.ResponseWriter, r *http.Request, optional bool, field func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return badRequest("read body: %v", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		if optional {
			return nil
		}
		return badRequest("request body is required")
	}

	if err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		return field(d, string(key))
	}); err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			return reqErr
		}
		return badRequest("malformed JSON body: %v", err)
	}
	return nil
}

// decodeMoney accepts an amount as a JSON string or number.
func decodeMoney(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = string(n)
	default:
		return decimal.Zero, badRequest("amount must be a string or a number")
	}

	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, badRequest("invalid amount %q", raw)
	}
	return v, nil
}

// decodeOptMoney is decodeMoney that also accepts null.
func decodeOptMoney(d *jx.Decoder) (decimal.NullDecimal, error) {
	if d.Next() == jx.Null {
		return decimal.NullDecimal{}, d.Null()
	}
	v, err := decodeMoney(d)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(v), nil
}

func decodeInt(d *jx.Decoder, field string) (int, error) {
	if d.Next() != jx.Number {
		return 0, badRequest("%s must be an integer", field)
	}
	v, err := d.Int32()
	if err != nil {
		return 0, badRequest("%s must be an integer between %d and %d", field, math.MinInt32, math.MaxInt32)
	}
	return int(v), nil
}

func decodeStr(d *jx.Decoder, field string) (string, error) {
	switch d.Next() {
	case jx.Null:
		return "", d.Null()
	case jx.String:
		return d.Str()
	default:
		return "", badRequest("%s must be a string", field)
	}
}

// decodeCustomer reads the optional customer details of invoice and submit
// requests.
func decodeCustomer(w http.ResponseWriter, r *http.Request) (sale.Customer, error) {
	var c sale.Customer
	err := readObject(w, r, true, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customer_name":
			c.Name, err = decodeStr(d, key)
		case "customer_phone":
			c.Phone, err = decodeStr(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

func writeJSON(w http.ResponseWriter, status int, enc func(e *jx.Encoder)) {
	var e jx.Encoder
	enc(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeErrorBody(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(code) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(2))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(p.Quantity) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
	})
}

func encodeProducts(e *jx.Encoder, products []product.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			encodeProduct(e, p)
		}
	})
}

func encodeCategory(e *jx.Encoder, c category.Category) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(c.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(c.Name) })
	})
}

func encodePurchase(e *jx.Encoder, p *purchase.Purchase) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		if p.Reference != "" {
			e.Field("reference", func(e *jx.Encoder) { e.Str(p.Reference) })
		}
		e.Field("product_name", func(e *jx.Encoder) { e.Str(p.ProductName) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(p.Quantity) })
		e.Field("price_per_unit", func(e *jx.Encoder) { encodeMoney(e, p.PricePerUnit) })
		e.Field("total_cost", func(e *jx.Encoder) { encodeMoney(e, p.TotalCost) })
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, p.CreatedAt) })
	})
}

func encodeLine(e *jx.Encoder, l sale.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(l.ID) })
		e.Field("product_id", func(e *jx.Encoder) { e.Str(l.ProductID) })
		e.Field("product_name", func(e *jx.Encoder) { e.Str(l.ProductName) })
		e.Field("category", func(e *jx.Encoder) { e.Str(l.Category) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("list_price", func(e *jx.Encoder) { encodeMoney(e, l.ListPrice) })
		e.Field("unit_price", func(e *jx.Encoder) { encodeMoney(e, l.UnitPrice) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, l.Total) })
		e.Field("available_stock", func(e *jx.Encoder) { e.Int(l.AvailableStock) })
	})
}

// encodeSession writes the cart of a session. extra adds fields after the
// standard ones.
func encodeSession(e *jx.Encoder, id string, s *sale.Session, extra func(e *jx.Encoder)) {
	lines := s.Lines()
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(id) })
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range lines {
					encodeLine(e, l)
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, s.Total()) })
		e.Field("submitting", func(e *jx.Encoder) { e.Bool(s.Submitting()) })
		if extra != nil {
			extra(e)
		}
	})
}

func encodeSummary(e *jx.Encoder, s *dashboard.Summary) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("total_stock", func(e *jx.Encoder) { e.Int(s.TotalStock) })
		e.Field("total_sold", func(e *jx.Encoder) { e.Int(s.TotalSold) })
		e.Field("low_stock", func(e *jx.Encoder) { encodeProducts(e, s.LowStock) })
		e.Field("categories", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, c := range s.Categories {
					e.Str(c)
				}
			})
		})
		e.Field("stock", func(e *jx.Encoder) { encodeProducts(e, s.Stock) })
		e.Field("recent", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, a := range s.Recent {
					e.Obj(func(e *jx.Encoder) {
						e.Field("kind", func(e *jx.Encoder) { e.Str(string(a.Kind)) })
						e.Field("description", func(e *jx.Encoder) { e.Str(a.Description) })
						e.Field("amount", func(e *jx.Encoder) { encodeMoney(e, a.Amount) })
						e.Field("at", func(e *jx.Encoder) { encodeTime(e, a.At) })
					})
				}
			})
		})
	})
}
