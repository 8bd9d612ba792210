package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"bill-backend/internal/billing"
	"bill-backend/internal/catalog"
	"bill-backend/internal/config"
	"bill-backend/internal/local"
	"bill-backend/internal/logger"
	"bill-backend/internal/remote"
	"bill-backend/internal/services"
	"bill-backend/internal/yaadro"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	offline := flag.Bool("offline", false, "keep bills in memory and skip the cloud copy")
	menuPath := flag.String("menu", "", "product catalog JSON (default built-in menu)")
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	menu := catalog.Default()
	if *menuPath != "" {
		if menu, err = catalog.LoadFile(*menuPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	var bills local.BillStore
	var drafts billing.DraftStore
	if *offline {
		bills, drafts = local.NewMemoryStore(), local.NewMemoryDraftStore()
	} else {
		db, err := local.Open(cfg.Local.Path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		bills, drafts = local.NewSQLiteStore(db), local.NewSQLiteDraftStore(db)
	}

	var cloud *remote.Client
	if !*offline {
		cloud = remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newApp(ctx, os.Stdout, deps{
		catalog:   menu,
		bills:     bills,
		drafts:    drafts,
		remote:    cloud,
		forwarder: yaadro.NewClient(cfg.Yaadro.BaseURL, cfg.Yaadro.ShopID, cfg.Yaadro.Token, cfg.Yaadro.Timeout),
		shareBase: cfg.Share.BaseURL,
	})

	err = a.run(ctx, flag.Args())
	a.bills.Wait()
	if err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		log.Debug("command failed", zap.Strings("args", flag.Args()), zap.Error(err))
		os.Exit(1)
	}
}

type deps struct {
	catalog   *catalog.Catalog
	bills     local.BillStore
	drafts    billing.DraftStore
	remote    *remote.Client
	forwarder services.OrderForwarder
	shareBase string
}

// newApp loads history and the persisted draft and wires the services
func newApp(ctx context.Context, out io.Writer, d deps) *app {
	history := services.NewHistoryService(d.bills)
	history.Load(ctx)

	// Interface values stay nil unless the cloud copy is actually reachable
	var mirror services.RemoteMirror
	var fetcher services.RemoteFetcher
	if d.remote.Configured() {
		mirror, fetcher = d.remote, d.remote
	}

	bills := services.NewBillService(history, mirror, 0)
	return &app{
		out:      out,
		catalog:  d.catalog,
		cart:     billing.OpenCart(ctx, d.drafts),
		history:  history,
		bills:    bills,
		share:    services.NewShareService(d.shareBase, bills, history, fetcher),
		orders:   services.NewOrderService(d.forwarder, bills, history),
		receipts: services.NewReceiptService("", ""),
	}
}
