package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fitstock/internal/domain/auth"
	"github.com/xenking/fitstock/internal/domain/category"
	"github.com/xenking/fitstock/internal/domain/product"
	"github.com/xenking/fitstock/internal/domain/purchase"
	"github.com/xenking/fitstock/internal/domain/sale"
	"github.com/xenking/fitstock/internal/session"
)

var statusBySentinel = []struct {
	err  error
	code int
}{
	{auth.ErrUnauthorized, http.StatusUnauthorized},
	{product.ErrNotFound, http.StatusNotFound},
	{category.ErrNotFound, http.StatusNotFound},
	{session.ErrNotFound, http.StatusNotFound},
	{product.ErrExists, http.StatusConflict},
	{product.ErrInUse, http.StatusConflict},
	{category.ErrExists, http.StatusConflict},
	{category.ErrInUse, http.StatusConflict},
	{purchase.ErrDuplicateReference, http.StatusConflict},
	{sale.ErrSubmissionInProgress, http.StatusConflict},
	{product.ErrInvalid, http.StatusUnprocessableEntity},
	{sale.ErrInvalidQuantity, http.StatusUnprocessableEntity},
	{sale.ErrEmptyCart, http.StatusUnprocessableEntity},
	{sale.ErrSubCentPrice, http.StatusUnprocessableEntity},
}

const (
	msgInternal         = "internal server error"
	msgSubmissionFailed = "sale submission failed, the cart was kept"
)

// classify maps err to a status code and a client-facing message. Wrapping
// context is dropped from the message.
func classify(err error) (int, string) {
	var (
		reqErr   *requestError
		subErr   *sale.SubmissionFailedError
		pnfErr   *sale.ProductNotFoundError
		stockErr *sale.InsufficientStockError
		discErr  *sale.InvalidDiscountError
		nameErr  *category.InvalidNameError
		fieldErr *purchase.InvalidFieldError
	)
	switch {
	case errors.As(err, &reqErr):
		return reqErr.code, reqErr.msg
	case errors.As(err, &subErr):
		return http.StatusBadGateway, msgSubmissionFailed
	case errors.As(err, &pnfErr):
		return http.StatusNotFound, pnfErr.Error()
	case errors.As(err, &stockErr):
		return http.StatusUnprocessableEntity, stockErr.Error()
	case errors.As(err, &discErr):
		return http.StatusUnprocessableEntity, discErr.Error()
	case errors.As(err, &nameErr):
		return http.StatusUnprocessableEntity, nameErr.Error()
	case errors.As(err, &fieldErr):
		return http.StatusUnprocessableEntity, fieldErr.Error()
	}

	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return s.code, s.err.Error()
		}
	}
	return http.StatusInternalServerError, msgInternal
}

// writeError classifies err and writes the error body. Server-side failures
// are logged with the full error chain.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := classify(err)
	switch {
	case code == http.StatusBadGateway:
		zctx.From(r.Context()).Warn("Backend rejected request", zap.Error(err))
	case code >= http.StatusInternalServerError:
		zctx.From(r.Context()).Error("Handler failed", zap.Error(err))
	}
	writeErrorBody(w, code, msg)
}
