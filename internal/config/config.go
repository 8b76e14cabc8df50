package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Sources contains the catalog pages the scraper reads.
type Sources struct {
	DetailsURL      string `toml:"details_url"`
	SpecsURL        string `toml:"specs_url"`
	BaseURL         string `toml:"base_url"`
	UserAgent       string `toml:"user_agent"`
	RequestTimeout  int    `toml:"request_timeout"`
	DownloadWorkers int    `toml:"download_workers"`
}

// Conversion contains settings for turning PDF sheets into page images.
type Conversion struct {
	PdftoppmBinary string `toml:"pdftoppm_binary"`
	DPI            int    `toml:"dpi"`
}

// Enrichment contains settings for captioning detail images.
type Enrichment struct {
	Enabled        bool     `toml:"enabled"`
	APIToken       string   `toml:"api_token"`
	BaseURL        string   `toml:"base_url"`
	Model          string   `toml:"model"`
	ImageBaseURL   string   `toml:"image_base_url"`
	Workers        int      `toml:"workers"`
	RequestTimeout int      `toml:"request_timeout"`
	MaxTokens      int      `toml:"max_tokens"`
	Temperature    float64  `toml:"temperature"`
	TopP           float64  `toml:"top_p"`
	BenignMarkers  []string `toml:"benign_failure_markers"`
	UseCache       bool     `toml:"use_cache"`
}

// Dataset contains settings for assembling and writing the dataset file.
type Dataset struct {
	OutputPath     string `toml:"output_path"`
	Format         string `toml:"format"`
	ImagePolicy    string `toml:"image_policy"`
	FallbackSource string `toml:"fallback_source"`
	IDPrefix       string `toml:"id_prefix"`
}

// Upload contains settings for publishing the dataset file.
type Upload struct {
	RepoID     string `toml:"repo_id"`
	Token      string `toml:"token"`
	Revision   string `toml:"revision"`
	PathInRepo string `toml:"path_in_repo"`
	BaseURL    string `toml:"base_url"`
	CreateRepo bool   `toml:"create_repo"`
	Private    bool   `toml:"private"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Metrics contains configuration for run metrics export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Notifications configures run completion notices.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	OnSuccess      bool   `toml:"on_success"`
}

// Config encapsulates all configuration values for aecvision.
//
// Configuration sections by subsystem:
//   - Paths: page images, catalog state and logs
//   - Sources: catalog pages and download behaviour
//   - Conversion: PDF rasterization
//   - Enrichment: image captioning model and worker pool
//   - Dataset: output file, format and assembly policy
//   - Upload: dataset hosting repository
//   - Logging: log format and level
//   - Metrics: optional textfile export of run counters
//   - Notifications: optional ntfy notices when a run finishes
type Config struct {
	Paths         Paths         `toml:"paths"`
	Sources       Sources       `toml:"sources"`
	Conversion    Conversion    `toml:"conversion"`
	Enrichment    Enrichment    `toml:"enrichment"`
	Dataset       Dataset       `toml:"dataset"`
	Upload        Upload        `toml:"upload"`
	Logging       Logging       `toml:"logging"`
	Metrics       Metrics       `toml:"metrics"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/aecvision/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("aecvision.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories every command relies on.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.StateDir, c.Paths.LogDir}
	if dir := filepath.Dir(c.Dataset.OutputPath); c.Dataset.OutputPath != "" {
		dirs = append(dirs, dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogPath returns the SQLite catalog location.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.StateDir, "catalog.db")
}

// LockPath returns the workspace lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "aecvision.lock")
}

// PdftoppmBinary returns the rasterizer executable name.
func (c *Config) PdftoppmBinary() string {
	if bin := strings.TrimSpace(c.Conversion.PdftoppmBinary); bin != "" {
		return bin
	}
	return defaultPdftoppmBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
