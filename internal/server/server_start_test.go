package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/example/go-german-cv/internal/config"
)

func freeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestStart_LifecycleHealthAndShutdown(t *testing.T) {
	addr := freeAddr(t)

	cfg := config.DefaultConfig()
	cfg.Server.ListenAddr = addr
	cfg.Server.ShutdownTimeout = 2

	s := New(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)

	go func() {
		errCh <- s.Start(ctx)
	}()

	var err error
	for range 50 {
		if err = ProbeHTTP(addr); err == nil {
			break
		}

		time.Sleep(20 * time.Millisecond)
	}

	if err != nil {
		t.Fatalf("server never became ready: %v", err)
	}

	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Post(fmt.Sprintf("http://%s/phonemize", addr), "application/json",
		bytes.NewBufferString(`{"lyric":"Schule"}`))
	if err != nil {
		t.Fatalf("POST /phonemize: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/phonemize status = %d; want 200", resp.StatusCode)
	}

	var body struct {
		Phonemes []struct {
			Phoneme  string `json:"phoneme"`
			Position int    `json:"position"`
		} `json:"phonemes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode /phonemize: %v", err)
	}

	// Default duration comes from the config.
	if len(body.Phonemes) != 2 || body.Phonemes[1].Position != cfg.Phonemizer.DefaultDuration/2 {
		t.Errorf("phonemes = %+v", body.Phonemes)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Start() returned error on shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return within 5s of context cancel")
	}
}

func TestStart_ListenErrorIsReturned(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	cfg := config.DefaultConfig()
	cfg.Server.ListenAddr = ln.Addr().String()

	err = New(cfg, nil).Start(context.Background())
	if err == nil {
		t.Fatal("Start() = nil; want error for an address in use")
	}
}

func TestNew_ShutdownTimeoutFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.ShutdownTimeout = 7

	s := New(cfg, nil)
	if s.shutdownTimeout != 7*time.Second {
		t.Errorf("shutdownTimeout = %v; want 7s", s.shutdownTimeout)
	}
}

func TestHandlerOptions_FromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Workers = 3
	cfg.Server.MaxLyricBytes = 9
	cfg.Server.MaxBatchNotes = 11
	cfg.Server.RequestTimeout = 2
	cfg.Phonemizer.DefaultDuration = 120
	cfg.Phonemizer.Legato = true
	cfg.Phonemizer.Concurrency = 5

	o := defaultOptions()
	for _, fn := range HandlerOptions(cfg) {
		fn(&o)
	}

	if o.workers != 3 || o.maxLyricBytes != 9 || o.maxBatchNotes != 11 {
		t.Errorf("limits = %d/%d/%d; want 3/9/11", o.workers, o.maxLyricBytes, o.maxBatchNotes)
	}

	if o.requestTimeout != 2*time.Second {
		t.Errorf("requestTimeout = %v; want 2s", o.requestTimeout)
	}

	if o.defaultDuration != 120 || !o.legato || o.concurrency != 5 {
		t.Errorf("phonemizer options = %d/%v/%d; want 120/true/5", o.defaultDuration, o.legato, o.concurrency)
	}
}
