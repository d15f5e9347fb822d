//go:build !windows

package pathenv

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// markerComment labels the section the installer appends to a shell
// rc file so a reader knows where the line came from.
const markerComment = "# added by pdfcat-install"

// DetectShell identifies the user's login shell from $SHELL.
func DetectShell() ShellType {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return ShellUnknown
	}
	switch strings.ToLower(filepath.Base(shell)) {
	case "bash":
		return ShellBash
	case "zsh":
		return ShellZsh
	case "fish":
		return ShellFish
	}
	return ShellUnknown
}

// rcFilePath returns the startup file for the given shell.
func rcFilePath(shell ShellType) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", &UpdateError{Message: "resolve home directory", Cause: err}
	}
	switch shell {
	case ShellBash:
		return filepath.Join(home, ".bashrc"), nil
	case ShellZsh:
		return filepath.Join(home, ".zshrc"), nil
	case ShellFish:
		return filepath.Join(home, ".config", "fish", "config.fish"), nil
	}
	return "", &UpdateError{Message: "unrecognized login shell, cannot pick an rc file"}
}

// persistUserPath appends the export line for dir to the login
// shell's rc file, exactly once.
func persistUserPath(dir string) (*Result, error) {
	shell := DetectShell()
	rcPath, err := rcFilePath(shell)
	if err != nil {
		return nil, err
	}

	line := ExportLine(shell, dir)
	present, err := hasLine(rcPath, line)
	if err != nil {
		return nil, err
	}
	if present {
		return &Result{AlreadyStored: true, Store: rcPath, Shell: shell}, nil
	}

	if err := appendLine(rcPath, line); err != nil {
		return nil, err
	}
	return &Result{Updated: true, Store: rcPath, Shell: shell}, nil
}

// hasLine reports whether the rc file already carries exactly this
// line. A missing rc file simply means no.
func hasLine(rcPath, line string) (bool, error) {
	file, err := os.Open(rcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &UpdateError{Store: rcPath, Message: "open rc file", Cause: err}
	}
	defer file.Close()

	want := strings.TrimSpace(line)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == want {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, &UpdateError{Store: rcPath, Message: "read rc file", Cause: err}
	}
	return false, nil
}

// appendLine rewrites the rc file with the marker section appended.
// The write goes through a sibling temp file and a rename so a crash
// cannot truncate the user's shell configuration.
func appendLine(rcPath, line string) error {
	var existing []byte
	if content, err := os.ReadFile(rcPath); err == nil {
		existing = content
	} else if !os.IsNotExist(err) {
		return &UpdateError{Store: rcPath, Message: "read rc file", Cause: err}
	}

	if err := os.MkdirAll(filepath.Dir(rcPath), 0755); err != nil {
		return &UpdateError{Store: rcPath, Message: "create rc file directory", Cause: err}
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(rcPath), ".pdfcat-install-*")
	if err != nil {
		return &UpdateError{Store: rcPath, Message: "create temp file", Cause: err}
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if len(existing) > 0 {
		if _, err := tmpFile.Write(existing); err != nil {
			tmpFile.Close()
			return &UpdateError{Store: rcPath, Message: "write existing content", Cause: err}
		}
		if !strings.HasSuffix(string(existing), "\n") {
			if _, err := tmpFile.WriteString("\n"); err != nil {
				tmpFile.Close()
				return &UpdateError{Store: rcPath, Message: "write separator", Cause: err}
			}
		}
	}

	section := "\n" + markerComment + "\n" + line + "\n"
	if _, err := tmpFile.WriteString(section); err != nil {
		tmpFile.Close()
		return &UpdateError{Store: rcPath, Message: "write path entry", Cause: err}
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return &UpdateError{Store: rcPath, Message: "sync temp file", Cause: err}
	}
	if err := tmpFile.Close(); err != nil {
		return &UpdateError{Store: rcPath, Message: "close temp file", Cause: err}
	}

	if err := os.Rename(tmpPath, rcPath); err != nil {
		return &UpdateError{Store: rcPath, Message: "replace rc file", Cause: err}
	}
	return nil
}
