package filepersistence

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// readJSON 读取 JSON 文件到 v。文件不存在时返回 (false, nil)。
func readJSON(fs afero.Fs, name string, v interface{}) (bool, error) {
	exists, err := afero.Exists(fs, name)
	if err != nil {
		return false, fmt.Errorf("file: stat %s: %w", name, err)
	}
	if !exists {
		return false, nil
	}
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return false, fmt.Errorf("file: read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("file: decode %s: %w", name, err)
	}
	return true, nil
}

// writeJSON 先写临时文件再重命名，避免进程中断留下半截 JSON。
func writeJSON(fs afero.Fs, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("file: encode %s: %w", name, err)
	}
	return writeAtomic(fs, name, data)
}

func writeAtomic(fs afero.Fs, name string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("file: mkdir for %s: %w", name, err)
	}
	tmp := name + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("file: write %s: %w", tmp, err)
	}
	if err := fs.Rename(tmp, name); err != nil {
		return fmt.Errorf("file: rename %s: %w", tmp, err)
	}
	return nil
}
