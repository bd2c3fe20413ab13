package powerlog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultLogPath returns the default Power.log path for the current platform.
func DefaultLogPath() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		// macOS: /Applications/Hearthstone/Logs/Power.log
		return filepath.Join("/Applications", "Hearthstone", "Logs", "Power.log"), nil

	case "windows":
		// Windows: C:\Program Files (x86)\Hearthstone\Logs\Power.log
		dir := os.Getenv("ProgramFiles(x86)")
		if dir == "" {
			dir = `C:\Program Files (x86)`
		}
		return filepath.Join(dir, "Hearthstone", "Logs", "Power.log"), nil

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// LogExists checks if the log file exists at the given path.
func LogExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("path is a directory, not a file")
	}
	return true, nil
}
