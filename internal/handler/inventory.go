package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/fitstock/internal/domain/dashboard"
	"github.com/xenking/fitstock/internal/domain/product"
	"github.com/xenking/fitstock/internal/domain/purchase"
)

func (h *Handler) listAvailableProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListAvailable(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProducts(e, products) })
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProducts(e, products) })
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, *p) })
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	p := product.Product{ID: r.PathValue("id"), Quantity: -1}
	err := readObject(w, r, false, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			p.Name, err = decodeStr(d, key)
		case "category":
			p.Category, err = decodeStr(d, key)
		case "quantity":
			p.Quantity, err = decodeInt(d, key)
		case "price":
			p.Price, err = decodeMoney(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	p.Name, p.Category = strings.TrimSpace(p.Name), strings.TrimSpace(p.Category)
	if err := p.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.products.Update(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p) })
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, c := range categories {
				encodeCategory(e, c)
			}
		})
	})
}

func readCategoryName(w http.ResponseWriter, r *http.Request) (string, error) {
	var name string
	err := readObject(w, r, false, func(d *jx.Decoder, key string) error {
		if key != "name" {
			return d.Skip()
		}
		var err error
		name, err = decodeStr(d, key)
		return err
	})
	return name, err
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	name, err := readCategoryName(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.categories.Create(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCategory(e, *c) })
}

func (h *Handler) renameCategory(w http.ResponseWriter, r *http.Request) {
	name, err := readCategoryName(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.categories.Rename(r.Context(), r.PathValue("id"), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCategory(e, *c) })
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recordPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchase.RecordRequest
	err := readObject(w, r, false, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "reference":
			req.Reference, err = decodeStr(d, key)
		case "product_name":
			req.ProductName, err = decodeStr(d, key)
		case "category":
			req.Category, err = decodeStr(d, key)
		case "quantity":
			req.Quantity, err = decodeInt(d, key)
		case "price_per_unit":
			req.PricePerUnit, err = decodeMoney(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.purchases.Record(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodePurchase(e, p) })
}

func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s, err := h.dashboard.Summary(r.Context(), dashboard.Filter{
		Category: q.Get("category"),
		Search:   q.Get("q"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSummary(e, s) })
}
