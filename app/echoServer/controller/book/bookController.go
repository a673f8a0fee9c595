package book

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	bookrepo "librarycatalog/repository/book"
	booksvc "librarycatalog/service/book"
)

type Controller struct {
	Svc booksvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /v1/books
func (h *Controller) List(c echo.Context) error {
	var f bookrepo.ListFilter

	if v := c.QueryParam("is_borrowed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid is_borrowed"})
		}
		f.Borrowed = &b
	}
	if v := c.QueryParam("borrower_card"); v != "" {
		card := v
		f.BorrowerCard = &card
	}
	f.Offset = intParam(c, "offset", 0)
	f.Limit = intParam(c, "limit", 100)

	rows, err := h.Svc.List(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, "book list", err)
	}
	out := make([]BookOut, 0, len(rows))
	for i := range rows {
		out = append(out, toOut(&rows[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// POST /v1/books
func (h *Controller) Create(c echo.Context) error {
	var req CreateBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	b, err := h.Svc.Add(c.Request().Context(), req.SerialNumber, req.Title, req.Author)
	if err != nil {
		return h.fail(c, "book create", err)
	}
	return c.JSON(http.StatusCreated, toOut(b))
}

// GET /v1/books/:serial_number
func (h *Controller) Detail(c echo.Context) error {
	b, err := h.Svc.GetBySerial(c.Request().Context(), c.Param("serial_number"))
	if err != nil {
		return h.fail(c, "book detail", err)
	}
	return c.JSON(http.StatusOK, toOut(b))
}

// DELETE /v1/books/:serial_number?allow_if_borrowed=
func (h *Controller) Delete(c echo.Context) error {
	allow, _ := strconv.ParseBool(c.QueryParam("allow_if_borrowed"))
	if err := h.Svc.Delete(c.Request().Context(), c.Param("serial_number"), allow); err != nil {
		return h.fail(c, "book delete", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// POST /v1/books/:serial_number/borrow
func (h *Controller) Borrow(c echo.Context) error {
	var req BorrowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	b, err := h.Svc.Borrow(c.Request().Context(), c.Param("serial_number"), req.BorrowerCard)
	if err != nil {
		return h.fail(c, "book borrow", err)
	}
	return c.JSON(http.StatusOK, toOut(b))
}

// POST /v1/books/:serial_number/return
func (h *Controller) Return(c echo.Context) error {
	b, err := h.Svc.Return(c.Request().Context(), c.Param("serial_number"))
	if err != nil {
		return h.fail(c, "book return", err)
	}
	return c.JSON(http.StatusOK, toOut(b))
}

// PATCH /v1/books/:serial_number/status
func (h *Controller) SetStatus(c echo.Context) error {
	var req SetStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	// request-shape error, rejected before the service runs
	if req.IsBorrowed && req.BorrowerCard == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "borrower_card is required when is_borrowed is true"})
	}
	b, err := h.Svc.SetStatus(c.Request().Context(), c.Param("serial_number"), req.IsBorrowed, req.BorrowerCard, req.When)
	if err != nil {
		return h.fail(c, "book set status", err)
	}
	return c.JSON(http.StatusOK, toOut(b))
}

// fail translates domain error codes to HTTP statuses, exactly once.
func (h *Controller) fail(c echo.Context, op string, err error) error {
	switch booksvc.Code(err) {
	case booksvc.ErrInvalidSerial, booksvc.ErrInvalidCard:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	case booksvc.ErrBookNotFound, booksvc.ErrUserNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	case booksvc.ErrDuplicateSerial, booksvc.ErrAlreadyBorrowed, booksvc.ErrNotBorrowed:
		return c.JSON(http.StatusConflict, echo.Map{"message": err.Error()})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

func intParam(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
