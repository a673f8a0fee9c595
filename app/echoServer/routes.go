package echoServer

import (
	"github.com/labstack/echo/v4"

	"librarycatalog/app/echoServer/controller/book"
	"librarycatalog/app/echoServer/controller/user"
)

type C struct {
	Book *book.Controller
	User *user.Controller
}

func Register(e *echo.Echo, c C) {
	v1 := e.Group("/v1")

	// Books
	v1.GET("/books", c.Book.List)
	v1.POST("/books", c.Book.Create)
	v1.GET("/books/:serial_number", c.Book.Detail)
	v1.DELETE("/books/:serial_number", c.Book.Delete)

	// Borrow-state transitions
	v1.POST("/books/:serial_number/borrow", c.Book.Borrow)
	v1.POST("/books/:serial_number/return", c.Book.Return)
	v1.PATCH("/books/:serial_number/status", c.Book.SetStatus)

	// Users (seeded; read plus removal only)
	v1.GET("/users", c.User.List)
	v1.GET("/users/:card_number", c.User.Detail)
	v1.DELETE("/users/:card_number", c.User.Delete)
}
