package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultSensitivePaths are always denied regardless of allow-list
// configuration (spec §4.6 "sensitive paths ... are always denied").
var DefaultSensitivePaths = []string{
	"/etc/passwd", "/etc/shadow", "/etc/sudoers",
	"~/.ssh", "~/.aws/credentials", "~/.config/gcloud",
}

// FileTool reads and writes files confined to an allow-list of path
// prefixes, expanding "~" before checking (spec §4.6 "File tools must
// expand paths and check against a configured allow-list before any I/O").
type FileTool struct {
	AllowList      []string
	SensitivePaths []string
}

// NewFileTool builds the file_read/file_write Tool pair sharing one policy.
func NewFileTool(allowList []string, timeout time.Duration) (readTool, writeTool Tool) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	t := &FileTool{AllowList: allowList, SensitivePaths: DefaultSensitivePaths}
	readTool = Tool{
		Name:        "file_read",
		Description: "Read a text file within the allow-listed paths.",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"path": map[string]any{"type": "string"}},
			"required":   []string{"path"},
		},
		Handler: t.read,
		Timeout: timeout.Milliseconds(),
	}
	writeTool = Tool{
		Name:        "file_write",
		Description: "Write a text file within the allow-listed paths.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":    map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
			},
			"required": []string{"path", "content"},
		},
		Handler: t.write,
		Timeout: timeout.Milliseconds(),
	}
	return readTool, writeTool
}

func expandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func (t *FileTool) checkAllowed(path string) (string, error) {
	expanded := expandPath(path)
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}
	for _, sensitive := range t.SensitivePaths {
		s := expandPath(sensitive)
		sAbs, err := filepath.Abs(s)
		if err != nil {
			continue
		}
		if abs == sAbs || strings.HasPrefix(abs, sAbs+string(filepath.Separator)) {
			return "", fmt.Errorf("path denied: %s is a sensitive path", path)
		}
	}
	if len(t.AllowList) == 0 {
		return "", fmt.Errorf("path denied: no allow-list configured")
	}
	for _, allowed := range t.AllowList {
		a := expandPath(allowed)
		aAbs, err := filepath.Abs(a)
		if err != nil {
			continue
		}
		if abs == aAbs || strings.HasPrefix(abs, aAbs+string(filepath.Separator)) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("path denied: %s is not in the allow-list", path)
}

func (t *FileTool) read(ctx context.Context, args json.RawMessage) (Result, error) {
	var in struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return Result{IsError: true, Content: fmt.Sprintf("invalid_arguments: %v", err)}, nil
	}
	abs, err := t.checkAllowed(in.Path)
	if err != nil {
		return Result{IsError: true, Content: err.Error()}, nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return Result{IsError: true, Content: err.Error()}, nil
	}
	return Result{Content: string(data)}, nil
}

func (t *FileTool) write(ctx context.Context, args json.RawMessage) (Result, error) {
	var in struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return Result{IsError: true, Content: fmt.Sprintf("invalid_arguments: %v", err)}, nil
	}
	abs, err := t.checkAllowed(in.Path)
	if err != nil {
		return Result{IsError: true, Content: err.Error()}, nil
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return Result{IsError: true, Content: err.Error()}, nil
	}
	if err := os.WriteFile(abs, []byte(in.Content), 0o644); err != nil {
		return Result{IsError: true, Content: err.Error()}, nil
	}
	return Result{Content: "ok"}, nil
}
