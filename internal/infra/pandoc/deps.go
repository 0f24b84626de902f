package pandoc

import (
	"context"
	"os/exec"
	"strings"
)

// DependencyInfo describes one external tool the converter needs.
type DependencyInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CheckDependencies probes the pandoc binary and the configured PDF
// engine. Used by the health gate before any work starts.
func (c *Converter) CheckDependencies(ctx context.Context) map[string]DependencyInfo {
	return map[string]DependencyInfo{
		"pandoc": probe(ctx, c.cfg.Binary),
		"engine": probe(ctx, c.cfg.Engine),
	}
}

func probe(ctx context.Context, binary string) DependencyInfo {
	info := DependencyInfo{Name: binary}

	path, err := exec.LookPath(binary)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.Available = true

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		// Present but won't report a version; still usable.
		return info
	}
	if line, _, ok := strings.Cut(string(out), "\n"); ok {
		info.Version = strings.TrimSpace(line)
	} else {
		info.Version = strings.TrimSpace(string(out))
	}
	return info
}
