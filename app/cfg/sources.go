package cfg

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// LoadSources reads feed URLs, one per line. Blank lines and lines starting
// with # are skipped.
func LoadSources(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}
	return parseSources(string(data)), nil
}

func parseSources(data string) []string {
	var sources []string
	for _, line := range strings.Split(data, "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		if line = strings.TrimSpace(line); line != "" {
			sources = append(sources, line)
		}
	}
	return sources
}

// AddSource appends url unless it is already listed. The file is created
// when missing.
func AddSource(path, url string) (bool, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return false, fmt.Errorf("source URL is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read sources file: %w", err)
	}

	if slices.Contains(parseSources(string(data)), url) {
		return false, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("failed to open sources file: %w", err)
	}
	defer f.Close()

	prefix := ""
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		prefix = "\n"
	}
	if _, err := f.WriteString(prefix + url + "\n"); err != nil {
		return false, fmt.Errorf("failed to write sources file: %w", err)
	}
	return true, nil
}

// RemoveSource drops every line equal to url. It reports false when nothing
// matched.
func RemoveSource(path, url string) (bool, error) {
	url = strings.TrimSpace(url)

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read sources file: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != url {
			kept = append(kept, line)
		}
	}
	if len(kept) == len(lines) {
		return false, nil
	}

	if err := os.WriteFile(path, []byte(strings.Join(kept, "\n")+"\n"), 0o644); err != nil {
		return false, fmt.Errorf("failed to write sources file: %w", err)
	}
	return true, nil
}
