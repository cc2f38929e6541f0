package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"yatube/pkg/api"
	"yatube/pkg/cache"
	"yatube/pkg/config"
	"yatube/pkg/storage"
	"yatube/pkg/storage/memdb"
	"yatube/pkg/storage/postgres"
)

const serviceName = "yatube"

func main() {
	var (
		sdb      storage.Storage
		dev      bool
		httpAddr string
		logLevel string
		confPath string
	)

	flag.BoolVar(&dev, "dev", false, "Run the server in development mode with in-memory DB.")
	flag.StringVar(&httpAddr, "http", "", "HTTP server address in the form 'host:port' (overrides config).")
	flag.StringVar(&logLevel, "log", "info", "Log level: debug, info, warn, error.")
	flag.StringVar(&confPath, "conf", "cmd/server/config.toml", "Path to the TOML config file.")
	flag.Parse()

	switch logLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	}

	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using system environment variables")
	}

	conf, err := config.Load(confPath)
	if err != nil {
		log.Fatalf("unable to load config: %v", err)
	}

	if httpAddr == "" {
		httpAddr = conf.Server.Addr
	}
	if !strings.Contains(httpAddr, ":") {
		log.Warn("use ':' before port number, e.g. ':8080'")
	}

	switch dev {
	case false:
		pgConf := conf.PostgresConf()
		if !pgConf.IsValid() {
			log.Fatal(fmt.Errorf("invalid postgres config: %+v", pgConf))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err := postgres.New(ctx, pgConf.ConString())
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()

		if err := db.Ping(ctx); err != nil {
			log.Fatal(fmt.Errorf("%w: %v", storage.ErrDBNotResponding, err))
		}
		if err := db.CreateTables(ctx); err != nil {
			log.Fatalf("unable to apply schema: %v", err)
		}
		log.Infof("connected to postgres: %s", pgConf)
		sdb = db

	case true:
		log.Info("Run server with in memory DB")
		sdb = memdb.New()
	}

	var kw *kafka.Writer
	if !dev && len(conf.Kafka.Brokers) > 0 {
		kw = &kafka.Writer{
			Addr:     kafka.TCP(conf.Kafka.Brokers...),
			Topic:    conf.Kafka.Topic,
			Balancer: &kafka.LeastBytes{},
		}
		defer kw.Close()
		log.Infof("access logs go to Kafka topic %q", conf.Kafka.Topic)
	}

	sessions := scs.New()
	sessions.Lifetime = 12 * time.Hour

	app, err := api.New(api.Config{
		ServiceName: serviceName,
		DB:          sdb,
		Sessions:    sessions,
		Cache:       cache.New(conf.CacheTTL()),
		TemplateDir: conf.Server.Templates,
		MediaRoot:   conf.Server.MediaRoot,
		StaticRoot:  conf.Server.StaticRoot,
		KafkaWriter: kw,
	})
	if err != nil {
		log.Fatalf("unable to initialize API: %v", err)
	}

	server := &http.Server{
		Addr:    httpAddr,
		Handler: app.Handler(),
	}

	go func() {
		log.Infof("starting %s on %s", serviceName, httpAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
		log.Info("Stopped serving new connections")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP shutdown error: %v", err)
	}
	log.Info("Server stopped")
}
