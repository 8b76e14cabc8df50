package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// Requirement names an external program a command executes.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// VersionArgs, when set, are passed to the program to read its version.
	VersionArgs []string
}

// Status is the result of probing one requirement.
type Status struct {
	Requirement
	Path      string
	Version   string
	Available bool
	Detail    string
}

// Rasterizer describes the PDF rasterizer used to turn detail sheets into
// page images.
func Rasterizer(command string) Requirement {
	return Requirement{
		Name:        "pdftoppm",
		Command:     strings.TrimSpace(command),
		Description: "Converts detail PDF sheets into page images",
		VersionArgs: []string{"-v"},
	}
}

// Check resolves req on PATH and, when it is found, reads its version. A
// program whose version cannot be read is still reported available.
func Check(ctx context.Context, req Requirement) Status {
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Path = path
	status.Available = true
	if len(req.VersionArgs) > 0 {
		status.Version = readVersion(ctx, path, req.VersionArgs)
	}
	return status
}

// CheckAll checks every requirement in order.
func CheckAll(ctx context.Context, reqs []Requirement) []Status {
	out := make([]Status, len(reqs))
	for i, req := range reqs {
		out[i] = Check(ctx, req)
	}
	return out
}

// readVersion returns the first line the program prints for args. poppler
// tools write it to stderr.
func readVersion(ctx context.Context, path string, args []string) string {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	_ = cmd.Run()
	line, _, _ := strings.Cut(strings.TrimSpace(out.String()), "\n")
	return strings.TrimSpace(line)
}
