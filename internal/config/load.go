package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Load reads a KEY=value settings file on top of the defaults. A missing
// file is not an error: the defaults are returned as they are.
func Load(fs afero.Fs, path string) (models.Settings, error) {
	settings := models.DefaultSettings()

	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("configuration file not found - skipping this step")
			return settings, nil
		}
		return settings, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	log.Info().Str("path", path).Msg("loading configuration")
	if err := Parse(f, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse config file: %w", err)
	}
	return settings, nil
}

// Parse applies every recognised KEY=value line from r onto settings.
// Comments, blank lines, lines without '=' and unknown keys are skipped.
func Parse(r io.Reader, settings *models.Settings) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if !settings.Set(models.Key(key), value) {
			log.Debug().Str("key", key).Msg("ignoring unknown setting")
		}
	}
	return scanner.Err()
}

func parseLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	key, value, ok = strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	value = unquote(strings.TrimSpace(value))
	return key, value, key != ""
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return strings.Trim(v, `"`)
}

// SaveRuntime writes every recognised setting as KEY="value" so the restore
// path can find the interfaces chosen at setup time.
func SaveRuntime(fs afero.Fs, path string, settings models.Settings) error {
	log.Info().Str("path", path).Msg("saving runtime configuration")

	if err := fs.MkdirAll(dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Alpine Wi-Fi Bridge Configuration\n")
	fmt.Fprintf(&b, "# Generated on %s\n", time.Now().Format("2006-01-02 15:04:05"))
	for _, k := range models.RecognizedKeys {
		fmt.Fprintf(&b, "%s=%q\n", k, settings.Get(k))
	}

	if err := afero.WriteFile(fs, path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func dir(path string) string {
	if i := strings.LastIndex(path, "/"); i > 0 {
		return path[:i]
	}
	return "."
}
