// Package config loads, normalizes, and validates aecvision configuration data.
//
// It supplies repository defaults (catalog URLs, captioning model, dataset
// layout), expands user paths including tilde shortcuts, reads TOML files, and
// honours environment fallbacks such as REPLICATE_API_TOKEN and
// HUGGINGFACE_TOKEN. Credentials are only checked by the commands that need
// them, so scraping and building without enrichment work on a bare config.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
