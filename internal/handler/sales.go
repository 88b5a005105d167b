package handler

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/fitstock/internal/domain/sale"
)

func (h *Handler) createSale(w http.ResponseWriter, _ *http.Request) {
	id, sess := h.sessions.Create()
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeSession(e, id, sess, nil) })
}

// session resolves the {session} path value.
func (h *Handler) session(r *http.Request) (string, *sale.Session, error) {
	id := r.PathValue("session")
	sess, err := h.sessions.Get(id)
	if err != nil {
		return "", nil, err
	}
	return id, sess, nil
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, sess, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSession(e, id, sess, nil) })
}

func (h *Handler) discardSale(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.PathValue("session")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	id, sess, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var (
		productID string
		quantity  int
		unitPrice decimal.NullDecimal
	)
	err = readObject(w, r, false, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			productID, err = decodeStr(d, key)
		case "quantity":
			quantity, err = decodeInt(d, key)
		case "unit_price":
			unitPrice, err = decodeOptMoney(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if productID == "" {
		writeError(w, r, badRequest("product_id is required"))
		return
	}

	line, err := sess.AddProduct(r.Context(), productID, quantity, unitPrice)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSession(e, id, sess, func(e *jx.Encoder) {
			e.Field("line", func(e *jx.Encoder) { encodeLine(e, line) })
		})
	})
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	id, sess, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	lineID, err := strconv.ParseInt(r.PathValue("line"), 10, 64)
	if err != nil {
		writeError(w, r, badRequest("invalid line id %q", r.PathValue("line")))
		return
	}

	removed, err := sess.Remove(lineID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSession(e, id, sess, func(e *jx.Encoder) {
			e.Field("removed", func(e *jx.Encoder) { e.Bool(removed) })
		})
	})
}

func (h *Handler) downloadInvoice(w http.ResponseWriter, r *http.Request) {
	_, sess, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	format, err := sale.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, unprocessable(err.Error()))
		return
	}
	customer, err := decodeCustomer(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	inv, err := sess.Invoice(r.Context(), customer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := sale.Render(&buf, inv, format); err != nil {
		writeError(w, r, errors.Wrap(err, "render invoice"))
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", format.ContentType())
	hdr.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": inv.FileName(format),
	}))
	hdr.Set("X-Invoice-Number", inv.Number)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) submitSale(w http.ResponseWriter, r *http.Request) {
	id, sess, err := h.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	customer, err := decodeCustomer(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	saleID, err := sess.Submit(r.Context(), customer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeSession(e, id, sess, func(e *jx.Encoder) {
			e.Field("sale_id", func(e *jx.Encoder) { e.Str(saleID) })
		})
	})
}
