// Package main library catalog API.
//
// @title           Library Catalog API
// @version         1.0
// @description     Catalog of books and the users who may borrow them.
// @BasePath        /
// @schemes         http
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"librarycatalog/app/echoServer"
	bookctrl "librarycatalog/app/echoServer/controller/book"
	userctrl "librarycatalog/app/echoServer/controller/user"
	"librarycatalog/app/echoServer/validation"
	"librarycatalog/config"
	bookrepo "librarycatalog/repository/book"
	userrepo "librarycatalog/repository/user"
	booksvc "librarycatalog/service/book"
	usersvc "librarycatalog/service/user"
	"librarycatalog/util/database"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Error("schema apply failed", "err", err)
		os.Exit(1)
	}
	if cfg.SeedDemo {
		if err := db.SeedDemo(ctx); err != nil {
			log.Error("demo seed failed", "err", err)
			os.Exit(1)
		}
	}

	// repos
	br := bookrepo.New(db)
	ur := userrepo.New(db)

	// services
	bs := booksvc.New(db, br)
	us := usersvc.New(db, ur)

	// controllers
	v := validator.New()
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	userC := &userctrl.Controller{Svc: us, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Book: bookC,
		User: userC,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	slog.Info("starting server", "env", cfg.Env, "port", port)

	e.Logger.Fatal(e.Start(":" + port))
}
