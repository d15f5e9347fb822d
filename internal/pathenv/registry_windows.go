//go:build windows

package pathenv

import (
	"golang.org/x/sys/windows/registry"
)

// userEnvKey is where per-user environment variables live; writing
// Path here persists across sessions without elevation.
const userEnvKey = `HKCU\Environment`

// persistUserPath appends dir to the per-user Path registry value.
func persistUserPath(dir string) (*Result, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, "Environment", registry.QUERY_VALUE|registry.SET_VALUE)
	if err != nil {
		return nil, &UpdateError{Store: userEnvKey, Message: "open registry key", Cause: err}
	}
	defer key.Close()

	current, valType, err := key.GetStringValue("Path")
	if err != nil && err != registry.ErrNotExist {
		return nil, &UpdateError{Store: userEnvKey, Message: "read Path value", Cause: err}
	}

	if Contains(current, dir) {
		return &Result{AlreadyStored: true, Store: userEnvKey}, nil
	}

	updated := dir
	if current != "" {
		updated = current + ";" + dir
	}

	// Preserve REG_EXPAND_SZ so existing %VAR% references keep
	// expanding for the user.
	if valType == registry.EXPAND_SZ {
		err = key.SetExpandStringValue("Path", updated)
	} else {
		err = key.SetStringValue("Path", updated)
	}
	if err != nil {
		return nil, &UpdateError{Store: userEnvKey, Message: "write Path value", Cause: err}
	}
	return &Result{Updated: true, Store: userEnvKey}, nil
}
