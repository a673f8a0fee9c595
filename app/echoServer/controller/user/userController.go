package user

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	usersvc "librarycatalog/service/user"
)

type Controller struct {
	Svc usersvc.Service
	Log *slog.Logger
}

// GET /v1/users
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.List(c.Request().Context())
	if err != nil {
		h.Log.Error("user list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/users/:card_number
func (h *Controller) Detail(c echo.Context) error {
	u, err := h.Svc.GetByCard(c.Request().Context(), c.Param("card_number"))
	if err != nil {
		return h.fail(c, "user detail", err)
	}
	return c.JSON(http.StatusOK, u)
}

// DELETE /v1/users/:card_number
//
// Removing a user also releases every book the card still holds; the clear
// and the delete commit together.
func (h *Controller) Delete(c echo.Context) error {
	if err := h.Svc.Remove(c.Request().Context(), c.Param("card_number")); err != nil {
		return h.fail(c, "user delete", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	switch usersvc.Code(err) {
	case usersvc.ErrInvalidCard:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	case usersvc.ErrUserNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
