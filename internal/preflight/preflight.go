package preflight

import (
	"context"

	"aecvision/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects optional checks.
type Options struct {
	// Network enables the credential checks that call remote APIs.
	Network bool
}

// RunAll executes all applicable preflight checks for the given config.
// Credential checks only run for enabled features.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckRasterizer(ctx, cfg),
	}

	if cfg.Enrichment.Enabled {
		if opts.Network {
			results = append(results, CheckReplicate(ctx, cfg.Enrichment.BaseURL, cfg.Enrichment.APIToken))
		} else {
			results = append(results, credentialPresent("Replicate", cfg.Enrichment.APIToken))
		}
	}

	if cfg.Upload.RepoID != "" {
		if opts.Network {
			results = append(results, CheckHub(ctx, cfg.Upload.BaseURL, cfg.Upload.Token))
		} else {
			results = append(results, credentialPresent("Hugging Face Hub", cfg.Upload.Token))
		}
	}

	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

func credentialPresent(name, token string) Result {
	if token == "" {
		return Result{Name: name, Detail: "token missing"}
	}
	return Result{Name: name, Passed: true, Detail: "token configured"}
}
