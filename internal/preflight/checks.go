package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"aecvision/internal/config"
	"aecvision/internal/deps"
)

const checkTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckRasterizer reports whether the configured pdftoppm binary is on PATH
// and which version it is.
func CheckRasterizer(ctx context.Context, cfg *config.Config) Result {
	status := deps.Check(ctx, deps.Rasterizer(cfg.PdftoppmBinary()))
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	detail := status.Path
	if status.Version != "" {
		detail = fmt.Sprintf("%s (%s)", status.Path, status.Version)
	}
	return Result{Name: status.Name, Passed: true, Detail: detail}
}

// CheckReplicate verifies that the captioning API accepts the token.
func CheckReplicate(ctx context.Context, baseURL, token string) Result {
	const name = "Replicate"
	if strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: "API token missing"}
	}
	return checkBearer(ctx, name, strings.TrimRight(baseURL, "/")+"/account", token)
}

// CheckHub verifies that the dataset hub accepts the upload token.
func CheckHub(ctx context.Context, baseURL, token string) Result {
	const name = "Hugging Face Hub"
	if strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: "token missing"}
	}
	return checkBearer(ctx, name, strings.TrimRight(baseURL, "/")+"/api/whoami-v2", token)
}

func checkBearer(ctx context.Context, name, endpoint, token string) Result {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	client := &http.Client{Timeout: checkTimeout}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "API reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid token)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (API unreachable)"
	}
	return fmt.Sprintf("auth check failed (%v)", err)
}
