// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/leveldb"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/database/meterdb"
	"github.com/ava-labs/avalanchego/utils/logging"

	"github.com/ava-labs/chainmirror/mirror"
)

const (
	Version = "v1.0.0"

	shutdownTimeout = 10 * time.Second
)

func main() {
	v, err := getViper(os.Args[1:])
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}
	// Print version and exit
	if v.GetBool(versionKey) {
		fmt.Printf("%s@%s\n", mirror.Name, Version)
		os.Exit(0)
	}

	config, err := parseConfig(v)
	if err != nil {
		fmt.Printf("couldn't parse config: %s\n", err)
		os.Exit(1)
	}

	lvl, err := log.LvlFromString(config.LogLevel)
	if err != nil {
		fmt.Printf("couldn't parse log level: %s\n", err)
		os.Exit(1)
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.TerminalFormat())))

	if err := run(config); err != nil {
		log.Error("chainmirror exited with an error", "err", err)
		os.Exit(1)
	}
}

func run(config config) error {
	registry := prometheus.NewRegistry()

	db, err := openDatabase(config.DBDir, registry)
	if err != nil {
		return err
	}
	defer db.Close()

	mux := http.NewServeMux()
	for i, name := range config.Chains {
		chain, err := mirror.New(db, name, nil, registry)
		if err != nil {
			return err
		}
		defer chain.Close()

		if err := chain.Initialize(config.Genesis[i], config.Chain); err != nil {
			return fmt.Errorf("couldn't initialize %s: %w", name, err)
		}

		handler, err := mirror.NewHandler(chain)
		if err != nil {
			return fmt.Errorf("couldn't create %s handler: %w", name, err)
		}
		endpoint := mirror.Endpoint(name)
		mux.Handle(endpoint, handler)
		log.Info("serving chain", "chain", name, "endpoint", endpoint)
	}
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              net.JoinHostPort(config.HTTPHost, strconv.Itoa(int(config.HTTPPort))),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		log.Info("shutting down", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn("couldn't shut down http server", "err", err)
		}
	}()

	log.Info("starting http server", "address", server.Addr, "version", Version)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openDatabase(dir string, registry prometheus.Registerer) (database.Database, error) {
	if dir == "" {
		log.Warn("no database directory given, mirrored chains won't be persisted")
		return memdb.New(), nil
	}
	db, err := leveldb.New(dir, nil, logging.NoLog{})
	if err != nil {
		return nil, fmt.Errorf("couldn't open database at %s: %w", dir, err)
	}
	meteredDB, err := meterdb.New("db", registry, db)
	if err != nil {
		return nil, fmt.Errorf("couldn't register database metrics: %w", err)
	}
	return meteredDB, nil
}
