package platform

import "strings"

// osNames maps Go runtime and release-naming spellings to the
// canonical OS value. Release assets use "macos"; the Go runtime
// reports "darwin".
var osNames = map[string]OS{
	"linux":   Linux,
	"darwin":  MacOS,
	"macos":   MacOS,
	"windows": Windows,
}

// archNames maps Go runtime and common vendor spellings to the
// canonical architecture value. Release assets use the hardware
// names ("x86_64", "aarch64"); the Go runtime reports "amd64" and
// "arm64".
var archNames = map[string]Arch{
	"amd64":   X8664,
	"x86_64":  X8664,
	"x64":     X8664,
	"arm64":   AArch64,
	"aarch64": AArch64,
}

// Identify normalizes an OS and architecture pair into the canonical
// platform tag. Unrecognized values yield an UnsupportedError naming
// the offending value; the pair is validated before any network
// activity so unsupported hosts fail immediately.
func Identify(goos, goarch string) (Tag, error) {
	os, ok := osNames[strings.ToLower(strings.TrimSpace(goos))]
	if !ok {
		return Tag{}, &UnsupportedError{Kind: "operating system", Value: goos}
	}
	arch, ok := archNames[strings.ToLower(strings.TrimSpace(goarch))]
	if !ok {
		return Tag{}, &UnsupportedError{Kind: "architecture", Value: goarch}
	}
	return Tag{OS: os, Arch: arch}, nil
}
