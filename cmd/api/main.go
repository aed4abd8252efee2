package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"sharescope.org/internal/httpapi"
	"sharescope.org/internal/obs"
	"sharescope.org/internal/store/pg"
	"sharescope.org/internal/visibility"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var store *pg.Store
	if dsn := os.Getenv("SHARESCOPE_PG_DSN"); dsn != "" {
		var err error
		store, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
	} else {
		log.Fatal("missing SHARESCOPE_PG_DSN")
	}

	cache := visibility.NewHierarchyCache(0, envDuration("SHARESCOPE_HIERARCHY_TTL", 0))
	resolver, err := visibility.NewResolver(store, visibility.WithHierarchyCache(cache))
	if err != nil {
		log.Fatalf("new resolver: %v", err)
	}

	probe := httpapi.ReadyProbe{DB: store.DB()}
	api := httpapi.New(probe, version, resolver, store)

	srv := &http.Server{
		Addr:              envString("SHARESCOPE_ADDR", ":8080"),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting sharescope-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// gRPC health endpoint for orchestration probes, off by default.
	var grpcSrv *grpc.Server
	if addr := os.Getenv("SHARESCOPE_GRPC_ADDR"); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		httpapi.RegisterHealth(grpcSrv, probe)
		log.Printf("Starting gRPC health on %s", addr)
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	_ = store.Close()
	log.Println("Stopped")
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("parse %s: %v", key, err)
	}
	return d
}
