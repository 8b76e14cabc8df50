package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSources()
	c.normalizeEnrichment()
	if err := c.normalizeDataset(); err != nil {
		return err
	}
	c.normalizeUpload()
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSources() {
	c.Sources.DetailsURL = strings.TrimSpace(c.Sources.DetailsURL)
	if c.Sources.DetailsURL == "" {
		c.Sources.DetailsURL = defaultDetailsURL
	}
	c.Sources.SpecsURL = strings.TrimSpace(c.Sources.SpecsURL)
	if c.Sources.SpecsURL == "" {
		c.Sources.SpecsURL = defaultSpecsURL
	}
	c.Sources.BaseURL = strings.TrimRight(strings.TrimSpace(c.Sources.BaseURL), "/")
	if c.Sources.BaseURL == "" {
		c.Sources.BaseURL = defaultSourceBaseURL
	}
	c.Sources.UserAgent = strings.TrimSpace(c.Sources.UserAgent)
	if c.Sources.UserAgent == "" {
		c.Sources.UserAgent = defaultUserAgent
	}
	if c.Sources.RequestTimeout == 0 {
		c.Sources.RequestTimeout = defaultRequestTimeout
	}
	if c.Sources.DownloadWorkers == 0 {
		c.Sources.DownloadWorkers = defaultDownloadWorkers
	}
	c.Conversion.PdftoppmBinary = strings.TrimSpace(c.Conversion.PdftoppmBinary)
	if c.Conversion.PdftoppmBinary == "" {
		c.Conversion.PdftoppmBinary = defaultPdftoppmBinary
	}
	if c.Conversion.DPI == 0 {
		c.Conversion.DPI = defaultDPI
	}
}

func (c *Config) normalizeEnrichment() {
	c.Enrichment.APIToken = strings.TrimSpace(c.Enrichment.APIToken)
	if c.Enrichment.APIToken == "" {
		if value, ok := os.LookupEnv("REPLICATE_API_TOKEN"); ok {
			c.Enrichment.APIToken = strings.TrimSpace(value)
		}
	}
	c.Enrichment.BaseURL = strings.TrimRight(strings.TrimSpace(c.Enrichment.BaseURL), "/")
	if c.Enrichment.BaseURL == "" {
		c.Enrichment.BaseURL = defaultReplicateBaseURL
	}
	c.Enrichment.Model = strings.TrimSpace(c.Enrichment.Model)
	if c.Enrichment.Model == "" {
		c.Enrichment.Model = defaultModel
	}
	c.Enrichment.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.Enrichment.ImageBaseURL), "/")
	if c.Enrichment.ImageBaseURL == "" {
		c.Enrichment.ImageBaseURL = defaultImageBaseURL
	}
	if c.Enrichment.Workers == 0 {
		c.Enrichment.Workers = defaultEnrichWorkers
	}
	if c.Enrichment.RequestTimeout == 0 {
		c.Enrichment.RequestTimeout = defaultEnrichTimeout
	}
	if c.Enrichment.MaxTokens == 0 {
		c.Enrichment.MaxTokens = defaultMaxTokens
	}
	markers := make([]string, 0, len(c.Enrichment.BenignMarkers))
	for _, marker := range c.Enrichment.BenignMarkers {
		if trimmed := strings.TrimSpace(marker); trimmed != "" {
			markers = append(markers, trimmed)
		}
	}
	c.Enrichment.BenignMarkers = markers
}

func (c *Config) normalizeDataset() error {
	if strings.TrimSpace(c.Dataset.OutputPath) == "" {
		c.Dataset.OutputPath = defaultOutputPath
	}
	var err error
	if c.Dataset.OutputPath, err = expandPath(c.Dataset.OutputPath); err != nil {
		return fmt.Errorf("dataset.output_path: %w", err)
	}
	c.Dataset.Format = strings.ToLower(strings.TrimSpace(c.Dataset.Format))
	if c.Dataset.Format == "" {
		c.Dataset.Format = defaultFormat
	}
	c.Dataset.ImagePolicy = strings.ToLower(strings.TrimSpace(c.Dataset.ImagePolicy))
	if c.Dataset.ImagePolicy == "" {
		c.Dataset.ImagePolicy = defaultImagePolicy
	}
	c.Dataset.FallbackSource = strings.ToLower(strings.TrimSpace(c.Dataset.FallbackSource))
	if c.Dataset.FallbackSource == "" {
		c.Dataset.FallbackSource = defaultFallbackSource
	}
	c.Dataset.IDPrefix = strings.TrimSpace(c.Dataset.IDPrefix)
	if c.Dataset.IDPrefix == "" {
		c.Dataset.IDPrefix = defaultIDPrefix
	}
	return nil
}

func (c *Config) normalizeUpload() {
	c.Upload.RepoID = strings.Trim(strings.TrimSpace(c.Upload.RepoID), "/")
	c.Upload.Token = strings.TrimSpace(c.Upload.Token)
	if c.Upload.Token == "" {
		c.Upload.Token = firstEnv("HUGGINGFACE_TOKEN", "HF_TOKEN")
	}
	c.Upload.Revision = strings.TrimSpace(c.Upload.Revision)
	if c.Upload.Revision == "" {
		c.Upload.Revision = defaultUploadRevision
	}
	c.Upload.PathInRepo = strings.TrimLeft(strings.TrimSpace(c.Upload.PathInRepo), "/")
	c.Upload.BaseURL = strings.TrimRight(strings.TrimSpace(c.Upload.BaseURL), "/")
	if c.Upload.BaseURL == "" {
		c.Upload.BaseURL = defaultUploadBaseURL
	}
}

func (c *Config) normalizeMetrics() error {
	if strings.TrimSpace(c.Metrics.TextfilePath) == "" {
		c.Metrics.TextfilePath = ""
		return nil
	}
	var err error
	if c.Metrics.TextfilePath, err = expandPath(c.Metrics.TextfilePath); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}
