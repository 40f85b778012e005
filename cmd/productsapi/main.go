package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/talkincode/productsapi/config"
	"github.com/talkincode/productsapi/internal/api"
	"github.com/talkincode/productsapi/internal/app"
	"github.com/talkincode/productsapi/internal/webserver"
)

const version = "1.0.0"

var (
	h        = flag.Bool("h", false, "help usage")
	showVer  = flag.Bool("v", false, "show version")
	conffile = flag.String("c", "", "config yaml file")
	initdb   = flag.Bool("initdb", false, "drop and recreate the product store, then exit")
)

func main() {
	flag.Parse()

	if *h {
		flag.Usage()
		return
	}
	if *showVer {
		fmt.Println(version)
		return
	}

	cfg, err := config.LoadConfig(*conffile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := app.InitLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		zap.L().Error("productsapi stopped", zap.Error(err))
		_ = zap.L().Sync()
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.NewApplication(cfg)
	defer application.Release()
	if err := application.Init(ctx); err != nil {
		return err
	}

	if *initdb {
		if err := application.InitDb(ctx); err != nil {
			return err
		}
		zap.L().Info("product store initialized")
		return nil
	}

	server := webserver.NewWebServer(cfg)
	api.NewHandler(application.ProductService(), application.Categories(), version).Register(server)

	zap.L().Info("starting productsapi",
		zap.String("version", version),
		zap.String("database", cfg.Database.Type),
		zap.String("image_dir", application.Images().Dir()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Web.ShutdownTimeout)*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	zap.L().Info("productsapi exited")
	return nil
}
