package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	if err := c.validateDataset(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Notifications.NtfyTopic != "" {
		return validateHTTPURL("notifications.ntfy_topic", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateSources() error {
	if err := validateHTTPURL("sources.details_url", c.Sources.DetailsURL); err != nil {
		return err
	}
	if err := validateHTTPURL("sources.specs_url", c.Sources.SpecsURL); err != nil {
		return err
	}
	if err := validateHTTPURL("sources.base_url", c.Sources.BaseURL); err != nil {
		return err
	}
	if c.Sources.RequestTimeout <= 0 {
		return errors.New("sources.request_timeout must be positive")
	}
	if c.Sources.DownloadWorkers <= 0 {
		return errors.New("sources.download_workers must be positive")
	}
	return nil
}

func (c *Config) validateConversion() error {
	if c.Conversion.DPI < 36 || c.Conversion.DPI > 1200 {
		return errors.New("conversion.dpi must be between 36 and 1200")
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	if err := validateHTTPURL("enrichment.base_url", c.Enrichment.BaseURL); err != nil {
		return err
	}
	if err := validateHTTPURL("enrichment.image_base_url", c.Enrichment.ImageBaseURL); err != nil {
		return err
	}
	if c.Enrichment.Workers <= 0 {
		return errors.New("enrichment.workers must be positive")
	}
	if c.Enrichment.RequestTimeout <= 0 {
		return errors.New("enrichment.request_timeout must be positive")
	}
	if c.Enrichment.MaxTokens <= 0 {
		return errors.New("enrichment.max_tokens must be positive")
	}
	if c.Enrichment.Temperature < 0 || c.Enrichment.Temperature > 5 {
		return errors.New("enrichment.temperature must be between 0 and 5")
	}
	if c.Enrichment.TopP < 0 || c.Enrichment.TopP > 1 {
		return errors.New("enrichment.top_p must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateDataset() error {
	switch c.Dataset.Format {
	case FormatJSONL, FormatJSON:
	default:
		return fmt.Errorf("dataset.format: unsupported value %q (want %q or %q)", c.Dataset.Format, FormatJSONL, FormatJSON)
	}
	switch c.Dataset.ImagePolicy {
	case ImagePolicyPerImage, ImagePolicyFirstImage:
	default:
		return fmt.Errorf("dataset.image_policy: unsupported value %q (want %q or %q)", c.Dataset.ImagePolicy, ImagePolicyPerImage, ImagePolicyFirstImage)
	}
	switch c.Dataset.FallbackSource {
	case FallbackLink, FallbackBody:
	default:
		return fmt.Errorf("dataset.fallback_source: unsupported value %q (want %q or %q)", c.Dataset.FallbackSource, FallbackLink, FallbackBody)
	}
	if strings.ContainsAny(c.Dataset.IDPrefix, " \t\n") {
		return errors.New("dataset.id_prefix must not contain whitespace")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// ValidateEnrichmentCredentials reports whether captioning can run.
func (c *Config) ValidateEnrichmentCredentials() error {
	if !c.Enrichment.Enabled {
		return nil
	}
	if c.Enrichment.APIToken == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/aecvision/config.toml"
		}
		return fmt.Errorf("enrichment.api_token is required when enrichment is enabled. Set REPLICATE_API_TOKEN env var or edit %s (create with 'aecvision config init')", defaultPath)
	}
	return nil
}

// ValidateUpload ensures the upload section names a destination and credentials.
func (c *Config) ValidateUpload() error {
	if c.Upload.RepoID == "" {
		return errors.New("upload.repo_id must be set (format: owner/name)")
	}
	parts := strings.Split(c.Upload.RepoID, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("upload.repo_id %q must have the form owner/name", c.Upload.RepoID)
	}
	if c.Upload.Token == "" {
		return errors.New("upload.token is required. Set HUGGINGFACE_TOKEN or HF_TOKEN env var")
	}
	return validateHTTPURL("upload.base_url", c.Upload.BaseURL)
}

func validateHTTPURL(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must be set", field)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", field)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	return nil
}
