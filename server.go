package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bookingserver/adminsession"
	"bookingserver/api"
	"bookingserver/booking"
	"bookingserver/clock"
	log "bookingserver/cloudlog"
	"bookingserver/config"
	"bookingserver/guard"
	"bookingserver/hub"
	"bookingserver/payment"
	"bookingserver/remotejob"
	"bookingserver/session"
	"bookingserver/storage"
	"bookingserver/wallet"
	"bookingserver/web"

	firebase "firebase.google.com/go/v4"
	"github.com/gorilla/mux"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

const shutdownTimeout = 15 * time.Second

func main() {
	flags := config.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func run(ctx context.Context, flags *config.Flags) error {
	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		return err
	}
	flags.Apply(cfg)
	if err := cfg.ResolveProjectID(ctx); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := log.Init(ctx, cfg.ProjectID, cfg.LogName); err != nil {
		log.Printf("cloud logging unavailable, logging to stderr: %v", err)
	}
	defer log.Close()

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return err
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return err
	}

	store, err := storage.New(ctx, cfg.ProjectID, cfg.CredentialsFile)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, err := remotejob.New(ctx, cfg.ProjectID, cfg.EventsTopic)
	if err != nil {
		log.Printf("events will not be published: %v", err)
	}
	defer publisher.Close()

	clk := clock.Real()
	auth := session.NewAuthenticator(authClient)
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	bookings := booking.NewService(store, publisher, clk)
	bookings.SetLocation(loc)

	accounts := session.NewResolver(ctx, store, cfg.RoleCacheTTL)
	admins := adminsession.NewStore(ctx, adminsession.Credentials{
		Email:        cfg.Admin.Email,
		PasswordHash: cfg.Admin.PasswordHash,
	})

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	handler := &api.Handler{
		Accounts: accounts,
		Bookings: bookings,
		Wallets:  wallet.NewService(store, publisher, clk),
		Payments: payment.NewService(store, publisher, clk, payment.Options{
			ClientID:    cfg.PayPal.ClientID,
			CheckoutURL: cfg.PayPal.CheckoutURL,
			ReturnURL:   base + "/payment/paypal/return",
			CancelURL:   base + "/payment/paypal/cancel",
		}),
		Directory:     hub.NewDirectory(store, clk),
		Connector:     hub.NewConnector(ctx, hub.Deps{Store: store, Clock: clk}, cfg.AllowedOrigins),
		Admin:         admins,
		Pages:         web.Pages(cfg.StaticDir),
		Health:        store.Ping,
		SecureCookies: !cfg.IsDevelopment(),
	}

	router := mux.NewRouter()
	handler.Routes(router, api.Guards{
		Verified: &guard.Verified{Auth: auth},
		Guest:    &guard.Guest{Auth: auth, Roles: accounts},
		Host:     &guard.Host{Auth: auth, Roles: accounts},
		Admin:    &guard.Admin{Sessions: admins},
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.Boundary(cfg.IsDevelopment(), router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting %s server at %s", cfg.Environment, cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Print("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
