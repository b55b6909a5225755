package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"
)

var errPrefix = color.New(color.FgRed, color.Bold)

// startSpinner animates msg on w while a request is in flight. It does
// nothing unless w is a terminal, so piped output stays clean.
func startSpinner(w io.Writer, msg string, verbose bool) func() {
	f, ok := w.(*os.File)
	if verbose || !ok || !term.IsTerminal(int(f.Fd())) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f))
	s.Suffix = " " + msg
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}

func printErr(w io.Writer, err error) {
	errPrefix.Fprint(w, "Error: ")
	fmt.Fprintln(w, err)
}
