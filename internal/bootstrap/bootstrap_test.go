package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/paper-grader/internal/config"
	"github.com/kirillkom/paper-grader/internal/core/domain"
)

func fakeServices(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/2.0/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	})
	mux.HandleFunc("/ocr", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if strings.HasPrefix(r.PostForm.Get("image"), "YmxhbmsK") {
			_, _ = w.Write([]byte(`{"words_result":[],"words_result_num":0}`))
			return
		}
		_, _ = w.Write([]byte(`{"words_result":[{"words":"water boils"},{"words":"at 100C"}]}`))
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Score: 9"}}]}`))
	})
	return httptest.NewServer(mux)
}

func testConfig(t *testing.T, serverURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "papers")
	if err := os.Mkdir(input, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, content := range map[string]string{"a.jpg": "image-a\n", "blank.png": "blank\n", "readme.md": "skip"} {
		if err := os.WriteFile(filepath.Join(input, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}
	return config.Config{
		DeepSeekAPIKey:      "sk",
		DeepSeekURL:         serverURL,
		DeepSeekTemperature: 0.1,
		BaiduAPIKey:         "ak",
		BaiduSecretKey:      "sec",
		BaiduTokenURL:       serverURL + "/oauth/2.0/token",
		BaiduOCRURL:         serverURL + "/ocr",
		InputDir:            input,
		OutputFile:          filepath.Join(dir, "results.json"),
		OutputXLSX:          filepath.Join(dir, "results.xlsx"),
		HTTPTimeoutSeconds:  5,
		BreakerEnabled:      true,
		BreakerFailureRatio: 0.5,
	}
}

func TestAppGradesDirectoryEndToEnd(t *testing.T) {
	server := fakeServices(t)
	defer server.Close()
	cfg := testConfig(t, server.URL)

	var stdout bytes.Buffer
	app, err := New(context.Background(), cfg, Options{
		Stdout: &stdout,
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	run, err := app.GradeUC.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(run.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(run.Records))
	}

	raw, err := os.ReadFile(cfg.OutputFile)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	var records []domain.ResultRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	byFile := map[string]domain.ResultRecord{}
	for _, rec := range records {
		byFile[rec.File] = rec
	}
	if got := byFile["a.jpg"]; got.Score != 9 || got.Answer != "water boils，at 100C" || got.Reason != "" {
		t.Fatalf("unexpected graded record %+v", got)
	}
	if got := byFile["blank.png"]; got.Score != 0 || got.Reason != domain.ReasonOCREmpty {
		t.Fatalf("unexpected blank record %+v", got)
	}
	if _, err := os.Stat(cfg.OutputXLSX); err != nil {
		t.Fatalf("expected workbook written: %v", err)
	}
	if !strings.Contains(stdout.String(), "results saved to") {
		t.Fatalf("expected summary on stdout, got %q", stdout.String())
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.DeepSeekAPIKey = ""
	_, err := New(context.Background(), cfg, Options{Stdout: io.Discard})
	if !domain.IsKind(err, domain.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestRunAbortsWithoutOutputOnAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"unknown client id"}`))
	}))
	defer server.Close()
	cfg := testConfig(t, server.URL)

	app, err := New(context.Background(), cfg, Options{
		Stdout: io.Discard,
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	_, err = app.GradeUC.Run(context.Background())
	if !domain.IsKind(err, domain.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if _, statErr := os.Stat(cfg.OutputFile); !os.IsNotExist(statErr) {
		t.Fatalf("results file must not be written on abort")
	}
}

func TestOpenArchiveRequiresDSN(t *testing.T) {
	if _, _, err := OpenArchive(context.Background(), ""); !domain.IsKind(err, domain.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
