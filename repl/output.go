package main

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/term"

	"github.com/Paranoid-AF/surmiser"
)

// termWriter wraps a file and converts \n to \r\n when the file is a terminal
// (needed because raw mode disables the kernel's NL→CRNL translation).
// When the file is redirected, \n passes through unchanged.
func termWriter(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) {
		return &crlfWriter{w: f}
	}
	return f
}

type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	replaced := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	_, err := c.w.Write(replaced)
	return len(p), err // report original length to caller
}

// acceptEntry is one accepted suggestion in the TOML log.
type acceptEntry struct {
	Timestamp  time.Time `toml:"timestamp"`
	Text       string    `toml:"text"`
	Completion string    `toml:"completion"`
	Confidence float64   `toml:"confidence"`
	Provider   string    `toml:"provider"`
}

// writeEntry appends s to w as an [[accepted]] table. text is the input
// value after the completion was inserted.
func writeEntry(w io.Writer, text string, s surmiser.Suggestion) error {
	doc := struct {
		Accepted []acceptEntry `toml:"accepted"`
	}{
		Accepted: []acceptEntry{{
			Timestamp:  time.Now().Truncate(time.Second),
			Text:       text,
			Completion: s.Completion,
			Confidence: s.Confidence,
			Provider:   s.ProviderID,
		}},
	}
	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
