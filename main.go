// Package main is the credit-ledger admin service: privileged balance
// adjustments, bulk grants, refunds with gateway reversal, and account
// inspection, all behind tiered admin authorization.
package main

import (
	"context"
	"log/slog"
	"os"

	"creditdesk/app/echoServer"
	adminctrl "creditdesk/app/echoServer/controller/admin"
	"creditdesk/app/echoServer/validation"
	"creditdesk/config"
	accountrepo "creditdesk/repository/account"
	auditrepo "creditdesk/repository/audit"
	ledgerrepo "creditdesk/repository/ledger"
	striperepo "creditdesk/repository/stripe"
	adminsvc "creditdesk/service/admin"
	ledgersvc "creditdesk/service/ledger"
	"creditdesk/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	lr := ledgerrepo.New(db)
	ar := accountrepo.New(db)
	aur := auditrepo.New(db)
	gw := striperepo.NewHTTP(cfg.StripeSecretKey)

	// services
	ls := ledgersvc.New(lr)
	policy := adminsvc.DefaultPolicy()
	if v, err := decimal.NewFromString(cfg.AdjustLimit); err == nil {
		policy.AdjustLimit = v
	}
	if v, err := decimal.NewFromString(cfg.BulkGrantLimit); err == nil {
		policy.BulkGrantLimit = v
	}
	as := adminsvc.New(ls, ar, aur, gw, policy, cfg.BulkWorkers, log)

	// controllers
	v := validator.New()
	adminC := &adminctrl.Controller{Svc: as, V: v, Log: log}

	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{"status": "ok"})
	})

	echoServer.Register(e, echoServer.C{
		Admin:     adminC,
		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Info("starting server", "port", port, "env", cfg.Env)
	e.Logger.Fatal(e.Start(":" + port))
}
