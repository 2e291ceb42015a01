// Package config merges config.json, environment overrides and command line
// arguments into one runtime configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/kelseyhightower/envconfig"

	"main/pkg/fsutil"
)

// envPrefix scopes environment overrides, e.g. VIDQUEUE_QUALITY.
const envPrefix = "VIDQUEUE"

// Config is the application configuration. Precedence, lowest to highest:
// built-in defaults, config.json, environment, command line.
type Config struct {
	BaseURL     string   `json:"baseUrl" envconfig:"BASE_URL"`
	Quality     string   `json:"quality" envconfig:"QUALITY"`
	AudioFormat string   `json:"audioFormat" envconfig:"AUDIO_FORMAT"`
	OutPath     string   `json:"outPath" envconfig:"OUT_PATH"`
	FfmpegPath  string   `json:"ffmpegPath" envconfig:"FFMPEG_PATH"`
	Verbose     bool     `json:"verbose" envconfig:"VERBOSE"`
	AudioOnly   bool     `json:"-" ignored:"true"`
	Urls        []string `json:"-" ignored:"true"`
}

// Args are the command line arguments.
type Args struct {
	Urls        []string `arg:"positional" help:"URLs to download, or .txt files with one URL per line"`
	AudioOnly   bool     `arg:"-a,--audio" help:"Extract audio instead of video"`
	Quality     string   `arg:"-q,--quality" help:"Video quality, e.g. 720p or \"Best Quality\""`
	AudioFormat string   `arg:"-f,--format" help:"Audio output format (mp3, m4a, wav, ogg)"`
	OutPath     string   `arg:"-o,--output" help:"Output directory"`
	Verbose     bool     `arg:"--verbose" help:"Verbose logging"`
}

// validAudioFormats are the containers the post-processor can produce.
var validAudioFormats = map[string]bool{
	"mp3": true,
	"m4a": true,
	"wav": true,
	"ogg": true,
}

// ParseCfg builds the runtime configuration. config.json is optional;
// missing URLs are an error since there is nothing to do.
func ParseCfg() (*Config, error) {
	cfg := defaults()

	if err := readConfigFile(cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	args := parseArgs()
	applyArgs(cfg, args)

	if !validAudioFormats[cfg.AudioFormat] {
		return nil, fmt.Errorf("unsupported audio format %q", cfg.AudioFormat)
	}

	urls, err := processUrls(args.Urls)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no URLs given")
	}
	cfg.Urls = urls

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Quality:     "Best Quality",
		AudioFormat: "mp3",
		OutPath:     "Downloads",
		FfmpegPath:  "ffmpeg",
	}
}

// readConfigFile overlays config.json onto cfg when the file exists.
func readConfigFile(cfg *Config) error {
	data, err := os.ReadFile("config.json")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, cfg)
}

func parseArgs() *Args {
	var args Args
	arg.MustParse(&args)
	return &args
}

func applyArgs(cfg *Config, args *Args) {
	if args.Quality != "" {
		cfg.Quality = args.Quality
	}
	if args.AudioFormat != "" {
		cfg.AudioFormat = strings.ToLower(args.AudioFormat)
	}
	if args.OutPath != "" {
		cfg.OutPath = args.OutPath
	}
	if args.AudioOnly {
		cfg.AudioOnly = true
	}
	if args.Verbose {
		cfg.Verbose = true
	}
}

// processUrls expands .txt list files and de-duplicates case-insensitively,
// keeping first-seen order.
func processUrls(urls []string) ([]string, error) {
	var processed []string

	for _, url := range urls {
		if strings.HasSuffix(url, ".txt") {
			lines, err := fsutil.ReadTxtFile(url)
			if err != nil {
				return nil, err
			}
			for _, line := range lines {
				if !contains(processed, line) {
					processed = append(processed, strings.TrimSuffix(line, "/"))
				}
			}
		} else {
			if !contains(processed, url) {
				processed = append(processed, strings.TrimSuffix(url, "/"))
			}
		}
	}

	return processed, nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
