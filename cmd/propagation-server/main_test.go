package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/propagation-tool/internal/config"
	"github.com/signalsfoundry/propagation-tool/internal/logging"
	"github.com/signalsfoundry/propagation-tool/internal/rpc"
	"github.com/signalsfoundry/propagation-tool/kb"
)

func TestPropagationServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	groundsPath := filepath.Join(t.TempDir(), "grounds.json")
	if err := os.WriteFile(groundsPath, []byte(`[{"name":"salt-marsh","conductivity":0.5,"permittivity":40}]`), 0o600); err != nil {
		t.Fatalf("write grounds: %v", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Server.GRPCAddr = lis.Addr().String()
	cfg.Server.MetricsAddr = ""
	cfg.Store.Enabled = true
	cfg.Store.Path = filepath.Join(t.TempDir(), "runs.db")
	cfg.Grounds = groundsPath

	log := logging.New(logging.Config{Level: "warn", Format: "text"})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	conn, err := grpc.NewClient(cfg.Server.GRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()

	client := rpc.NewClient(conn)
	resp, err := client.ListGrounds(ctx, grpc.WaitForReady(true))
	if err != nil {
		t.Fatalf("ListGrounds: %v", err)
	}
	if got, want := len(resp.Grounds), len(kb.DefaultGrounds())+1; got != want {
		t.Fatalf("ListGrounds returned %d grounds, want %d", got, want)
	}

	if _, err := client.ListRuns(ctx, &rpc.ListRunsRequest{}); err != nil {
		t.Fatalf("ListRuns with archive enabled: %v", err)
	}

	cancel()

	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}
