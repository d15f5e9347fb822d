// Package ui holds the installer's terminal output helpers.
package ui

import "github.com/fatih/color"

// Printer carries the printf-style functions a run reports progress
// through. fatih/color disables itself on non-terminals and when
// NO_COLOR is set, so plain pipes get plain text.
type Printer struct {
	Stepf func(format string, a ...any) // stage announcements
	Donef func(format string, a ...any) // confirmations
	Warnf func(format string, a ...any) // problems the install survived
	Failf func(format string, a ...any) // the failure that ended the run
}

// New returns a Printer in the installer's standard palette.
func New() *Printer {
	return &Printer{
		Stepf: color.New(color.FgCyan).PrintfFunc(),
		Donef: color.New(color.FgGreen).PrintfFunc(),
		Warnf: color.New(color.FgHiMagenta).PrintfFunc(),
		Failf: color.New(color.FgRed).PrintfFunc(),
	}
}

// Discard returns a Printer that swallows everything. Tests use it to
// keep runs quiet.
func Discard() *Printer {
	drop := func(string, ...any) {}
	return &Printer{Stepf: drop, Donef: drop, Warnf: drop, Failf: drop}
}
