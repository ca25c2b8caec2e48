/*
Mathserver exposes symbolic-expression evaluation and differentiation over
HTTP.

Usage:

	mathserver [flags]

Once started, mathserver listens for HTTP requests and responds with JSON.
By default it listens on localhost:8080; this can be changed with the
--listen/-l flag or the config file's server.listen_addr.

If no token secret is configured, every endpoint except /healthz is served
without authentication. This is suitable for local development only; a
production deployment must set --secret or server.secret.

The flags are:

	-c, --config FILE
		Load a TOML configuration file (see internal/config).

	-l, --listen LISTEN_ADDRESS
		Listen on the given address. Overrides the config file's
		server.listen_addr.

	-s, --secret TOKEN_SECRET
		Require this HS256 secret on every non-/healthz request's bearer
		token. Overrides the config file's server.secret. Must be at
		least config.MinSecretSize bytes once resolved.

	--history-db PATH
		Path to the evaluation history sqlite database. Overrides the
		config file's server.history_db. Empty disables history.
*/
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/dekarrin/mathexpr/backend"
	"github.com/dekarrin/mathexpr/backend/csource"
	"github.com/dekarrin/mathexpr/cmd/mathserver/api"
	"github.com/dekarrin/mathexpr/cmd/mathserver/history"
	"github.com/dekarrin/mathexpr/internal/config"
)

var (
	flagConfig    = pflag.StringP("config", "c", "", "Load a TOML configuration file")
	flagListen    = pflag.StringP("listen", "l", "", "Listen on the given address")
	flagSecret    = pflag.StringP("secret", "s", "", "Require this secret on every bearer token")
	flagHistoryDB = pflag.String("history-db", "", "Path to the evaluation history sqlite database")
)

func main() {
	pflag.Parse()

	cfg := config.Config{}.FillDefaults()
	if *flagConfig != "" {
		loaded, err := config.Load(*flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			os.Exit(1)
		}
		cfg = loaded
	}

	if *flagListen != "" {
		cfg.Server.ListenAddr = *flagListen
	}
	if *flagSecret != "" {
		cfg.Server.Secret = *flagSecret
	}
	if *flagHistoryDB != "" {
		cfg.Server.HistoryDB = *flagHistoryDB
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "localhost:8080"
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		os.Exit(1)
	}

	hist, err := history.Open(cfg.Server.HistoryDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		os.Exit(1)
	}
	defer hist.Close()

	registry := backend.NewDefaultRegistry(csource.Options{
		Compiler:   cfg.CCompiler,
		ExtraFlags: cfg.CFlags,
		TempDir:    cfg.TempDir,
	})

	a := api.API{Registry: registry, History: hist}
	r := newRouter(a, []byte(cfg.Server.Secret))
	srv := newServer(cfg.Server.ListenAddr, r)

	if cfg.Server.Secret == "" {
		log.Printf("WARN  no server.secret configured; all endpoints are unauthenticated")
	}
	log.Printf("INFO  mathserver listening on %s", cfg.Server.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("FATAL %s", err.Error())
	}
}
