package install

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
)

// ServerName is the key written under mcpServers
const ServerName = "thinking-tools"

// ErrNoConfigs is returned when no supported client config exists
var ErrNoConfigs = errors.New("no supported MCP configurations found. Please make sure at least one of these is installed: Cursor, Claude Desktop, Claude Code, Cline, or Kiro")

// ConfigPath represents a known location for MCP settings
type ConfigPath struct {
	Name string
	Path string
}

// GetUserConfigPaths returns candidate MCP config paths for goos
func GetUserConfigPaths(home, goos string) []ConfigPath {
	if home == "" {
		return nil
	}

	paths := []ConfigPath{
		{Name: "Cursor", Path: filepath.Join(home, ".cursor", "mcp.json")},
		{Name: "Claude Code CLI", Path: filepath.Join(home, ".claude.json")},
		{Name: "Kiro", Path: filepath.Join(home, ".kiro", "settings", "mcp.json")},
	}

	var appSupport string
	switch goos {
	case "darwin":
		appSupport = filepath.Join(home, "Library", "Application Support")
	case "windows":
		appSupport = os.Getenv("APPDATA")
		if appSupport == "" {
			appSupport = filepath.Join(home, "AppData", "Roaming")
		}
	default:
		appSupport = filepath.Join(home, ".config")
	}

	return append(paths,
		ConfigPath{Name: "Claude Desktop", Path: filepath.Join(appSupport, "Claude", "claude_desktop_config.json")},
		ConfigPath{Name: "Cline (VS Code)", Path: filepath.Join(appSupport, "Code", "User", "globalStorage", "saoudrizwan.claude-dev", "settings", "cline_mcp_settings.json")},
		ConfigPath{Name: "VS Code (Generic MCP)", Path: filepath.Join(appSupport, "Code", "User", "mcp.json")},
	)
}

// MCPServerConfig represents individual server settings
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options control an installation
type Options struct {
	BinaryPath string
	Args       []string
	Env        map[string]string
	// Home and GOOS default to the current user and platform
	Home   string
	GOOS   string
	Logger *zap.Logger
}

// Install adds this server to every MCP client config that already exists
// and returns the names of the patched clients
func Install(opts Options) ([]string, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		opts.Home = home
	}

	entry := MCPServerConfig{Command: opts.BinaryPath, Args: opts.Args, Env: opts.Env}

	var installed []string
	for _, cfg := range GetUserConfigPaths(opts.Home, opts.GOOS) {
		if _, err := os.Stat(cfg.Path); err != nil {
			continue
		}

		opts.Logger.Info("patching MCP config", zap.String("client", cfg.Name), zap.String("path", cfg.Path))
		if err := patchConfigFile(cfg.Path, entry); err != nil {
			opts.Logger.Warn("failed to patch config", zap.String("client", cfg.Name), zap.Error(err))
			continue
		}
		installed = append(installed, cfg.Name)
	}

	if len(installed) == 0 {
		return nil, ErrNoConfigs
	}
	return installed, nil
}

// patchConfigFile sets mcpServers[ServerName] and keeps every other key.
// A file that is not a JSON object is left untouched.
func patchConfigFile(path string, entry MCPServerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	root := map[string]json.RawMessage{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &root); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if root == nil {
			root = map[string]json.RawMessage{}
		}
	}

	servers := map[string]json.RawMessage{}
	if raw, ok := root["mcpServers"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return fmt.Errorf("parse mcpServers in %s: %w", path, err)
		}
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	servers[ServerName] = encoded

	if root["mcpServers"], err = json.Marshal(servers); err != nil {
		return err
	}

	newData, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, newData, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
