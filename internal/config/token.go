package config

import (
	"os"
	"os/exec"
	"strings"
)

// credentialHelper is the command consulted when neither token
// variable is set. The gh CLI prints its active token on stdout.
// Tests point this at a stub.
var credentialHelper = []string{"gh", "auth", "token"}

// resolveToken finds a bearer credential for the release API, in
// order: the installer-specific variable, the shared variable, then a
// credential-helper invocation. Unauthenticated operation is normal,
// so every miss is silent.
func resolveToken() (token, source string) {
	if t := strings.TrimSpace(os.Getenv(EnvToken)); t != "" {
		return t, EnvToken
	}
	if t := strings.TrimSpace(os.Getenv(EnvTokenShared)); t != "" {
		return t, EnvTokenShared
	}
	if t := askCredentialHelper(); t != "" {
		return t, strings.Join(credentialHelper, " ")
	}
	return "", ""
}

func askCredentialHelper() string {
	if len(credentialHelper) == 0 {
		return ""
	}
	path, err := exec.LookPath(credentialHelper[0])
	if err != nil {
		return ""
	}
	out, err := exec.Command(path, credentialHelper[1:]...).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
