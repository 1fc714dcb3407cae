package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	carbanalyzer "github.com/menta2k/carb-analyzer"
	"github.com/menta2k/carb-analyzer/internal/config"
	"github.com/menta2k/carb-analyzer/internal/settings"
	"github.com/menta2k/carb-analyzer/internal/utils"
	"github.com/menta2k/carb-analyzer/pkg/imageprep"
)

func main() {
	var in, backend, url, model, key, dbPath string
	var showRaw bool

	flag.StringVar(&in, "in", "", "input meal photo path or URL (jpg/png/gif/webp)")
	flag.StringVar(&backend, "backend", "openai", "backend to use: openai or ollama")
	flag.StringVar(&url, "url", "", "server URL (defaults: openai=hosted endpoint, ollama=http://localhost:11434)")
	flag.StringVar(&model, "model", "", "model name (default per backend)")
	flag.StringVar(&key, "key", "", "API key for the openai backend (falls back to CARB_ANALYZER_API_KEY, then the local settings store)")
	flag.StringVar(&dbPath, "db", "", "settings database path (default: alongside the config file)")
	flag.BoolVar(&showRaw, "raw", false, "also print the raw model response to stderr")

	flag.Parse()
	if in == "" {
		log.Fatalf("usage: %s -in meal.jpg|URL [-backend openai|ollama] [-url server_url] [-model name] [-key api_key]", filepath.Base(os.Args[0]))
	}

	cfg := config.Default()
	cfg.ApplyEnv()
	if url == "" {
		url = cfg.Inference.BaseURL
	}

	// Advisory size check: large files are compressed, not rejected.
	if !strings.HasPrefix(in, "http://") && !strings.HasPrefix(in, "https://") {
		if !utils.IsImageFile(in) {
			log.Fatalf("%s is not an image file", in)
		}
		if size := utils.FileSize(in); size > imageprep.MaxAdvisoryBytes {
			log.Printf("input is %s, will be downscaled and recompressed before upload", utils.FormatFileSize(size))
		}
	}

	var analyzer *carbanalyzer.Analyzer
	var err error

	switch backend {
	case "openai":
		if model == "" {
			model = cfg.Inference.Model
		}
		if key == "" {
			key = os.Getenv("CARB_ANALYZER_API_KEY")
		}
		if key == "" {
			key = storedKey(dbPath)
		}
		if key == "" {
			log.Fatalf("no API key: pass -key, set CARB_ANALYZER_API_KEY, or store one with carb-server")
		}
		analyzer = carbanalyzer.NewOpenAI(url, key, model)
	case "ollama":
		if url == "" {
			url = "http://localhost:11434"
		}
		if model == "" {
			model = "llava"
		}
		analyzer, err = carbanalyzer.NewOllama(url, model)
		if err != nil {
			log.Fatalf("Failed to create Ollama client: %v", err)
		}
	default:
		log.Fatalf("Unknown backend: %s (use 'openai' or 'ollama')", backend)
	}

	result, err := analyzer.AnalyzeFile(context.Background(), in)
	if err != nil {
		log.Fatal(err)
	}

	if showRaw {
		fmt.Fprintln(os.Stderr, result.Raw)
	}
	if result.Estimated() {
		log.Printf("warning: structured parsing failed, values are approximate")
	}

	js, _ := json.MarshalIndent(result.Record, "", "  ")
	fmt.Println(string(js))
}

// storedKey reads the credential from the local settings store, if any.
func storedKey(dbPath string) string {
	if dbPath == "" {
		dbPath = filepath.Join(filepath.Dir(config.GetConfigPath()), "carb-analyzer.db")
	}
	if !utils.FileExists(dbPath) {
		return ""
	}

	store, err := settings.Open(dbPath)
	if err != nil {
		return ""
	}
	defer store.Close()

	key, err := store.APIKey()
	if err != nil {
		return ""
	}
	return key
}
