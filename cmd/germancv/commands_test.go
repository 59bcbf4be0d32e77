package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-german-cv/internal/doctor"
	"github.com/example/go-german-cv/internal/phoneme"
	"gopkg.in/yaml.v3"
)

func TestInventory_Text(t *testing.T) {
	out, err := execute(t, nil, "inventory")
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}

	for _, want := range []string{"consonants (priority order)", "vowels (priority order)", "ending consonants:", "sch   -> sh"} {
		if !strings.Contains(out, want) {
			t.Errorf("inventory output missing %q", want)
		}
	}
}

func TestInventory_JSONMatchesSnapshot(t *testing.T) {
	out, err := execute(t, nil, "inventory", "--format", "json")
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}

	var got phoneme.Inventory
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	want := phoneme.Snapshot()
	if len(got.VowelTable) != len(want.VowelTable) || len(got.ConsonantTable) != len(want.ConsonantTable) {
		t.Errorf("table sizes = %d/%d; want %d/%d",
			len(got.VowelTable), len(got.ConsonantTable), len(want.VowelTable), len(want.ConsonantTable))
	}

	if len(got.Vowels) != len(want.Vowels) || len(got.EndingConsonants) != len(want.EndingConsonants) {
		t.Errorf("inventory lists differ: %+v", got)
	}
}

func TestInventory_YAML(t *testing.T) {
	out, err := execute(t, nil, "inventory", "--format", "yaml")
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}

	var got phoneme.Inventory
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}

	if len(got.ConsonantTable) == 0 {
		t.Error("want consonant rules in YAML output")
	}
}

func TestInventory_BadFormat(t *testing.T) {
	if _, err := execute(t, nil, "inventory", "--format", "csv"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestBench_JSON(t *testing.T) {
	out, err := execute(t, nil, "bench", "--text", "Der Mond ist auf-ge-gan-gen", "--runs", "2", "--repeat", "3", "--format", "json")
	if err != nil {
		t.Fatalf("bench: %v", err)
	}

	var report struct {
		Runs []struct {
			Notes int `json:"notes"`
		} `json:"runs"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}

	if len(report.Runs) != 2 {
		t.Fatalf("runs = %d; want 2", len(report.Runs))
	}

	if report.Runs[0].Notes != 21 {
		t.Errorf("notes per run = %d; want 7 lyrics x 3", report.Runs[0].Notes)
	}
}

func TestBench_Table(t *testing.T) {
	out, err := execute(t, nil, "bench", "--notes", filepath.Join("..", "..", "testdata", "lied.yaml"), "--runs", "1")
	if err != nil {
		t.Fatalf("bench: %v", err)
	}

	if !strings.Contains(out, "Notes/s") {
		t.Errorf("table output missing Notes/s column:\n%s", out)
	}
}

func TestBench_InvalidFlags(t *testing.T) {
	cases := [][]string{
		{"bench", "--text", "ja", "--runs", "0"},
		{"bench", "--text", "ja", "--repeat", "0"},
		{"bench", "--text", "ja", "--format", "csv"},
		{"bench", "--text", "ja", "--runs", "1", "--min-throughput", "1e15"},
	}

	for _, args := range cases {
		if _, err := execute(t, nil, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestDoctor_Passes(t *testing.T) {
	out, err := execute(t, nil, "doctor", filepath.Join("..", "..", "testdata", "lied.yaml"))
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}

	if strings.Contains(out, doctor.FailMark) {
		t.Errorf("unexpected failure mark:\n%s", out)
	}

	if !strings.Contains(out, "note file:") || !strings.Contains(out, "doctor checks passed") {
		t.Errorf("output =\n%s", out)
	}
}

func TestDoctor_FailsOnBadNoteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("notes: []\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out, err := execute(t, nil, "doctor", path)
	if err == nil {
		t.Fatal("expected doctor to fail")
	}

	if !strings.Contains(out, doctor.FailMark+" note file") {
		t.Errorf("output =\n%s", out)
	}
}

func TestDoctor_FailsOnBadSettings(t *testing.T) {
	_, err := execute(t, nil, "doctor", "--server-max-lyric-bytes", "0")
	if err == nil {
		t.Fatal("expected doctor to fail on max_lyric_bytes 0")
	}
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	addr := strings.TrimPrefix(ts.URL, "http://")

	out, err := execute(t, nil, "health", "--addr", addr)
	if err != nil {
		t.Fatalf("health: %v", err)
	}

	if strings.TrimSpace(out) != "ok" {
		t.Errorf("output = %q; want ok", out)
	}
}

func TestHealth_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := execute(t, nil, "health", "--addr", addr); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}
