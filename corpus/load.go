package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Paranoid-AF/surmiser"
	defaults "github.com/Paranoid-AF/surmiser/default"
)

// File is the structured corpus file format used by .json, .toml and .yaml files.
type File struct {
	Phrases []string `json:"phrases" toml:"phrases" yaml:"phrases"`
}

// LoadFile reads phrases from path. Plain text files hold one phrase per
// line with "#" comments; structured files hold a "phrases" list.
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	phrases, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse corpus %s: %w", path, err)
	}
	return phrases, nil
}

// LoadFiles concatenates the phrases of every path, in order.
func LoadFiles(paths []string) ([]string, error) {
	var all []string
	for _, path := range paths {
		phrases, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, phrases...)
	}
	return all, nil
}

// Parse decodes corpus data in the format named by ext.
func Parse(data []byte, ext string) ([]string, error) {
	var f File
	switch strings.ToLower(ext) {
	case "", ".txt":
		return parseLines(data)
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported corpus format: %s", ext)
	}
	return clean(f.Phrases), nil
}

func parseLines(data []byte) ([]string, error) {
	var phrases []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		phrases = append(phrases, line)
	}
	return phrases, scanner.Err()
}

func clean(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Compose combines a base corpus with own according to mode. A nil base
// selects the embedded default corpus.
func Compose(base, own []string, mode surmiser.CorpusMode) []string {
	if mode != surmiser.CorpusAppend {
		return append([]string(nil), own...)
	}
	if base == nil {
		base = defaults.DefaultCorpus()
	}
	out := make([]string, 0, len(base)+len(own))
	out = append(out, base...)
	return append(out, own...)
}

// Default returns a predictive provider over the embedded default corpus.
func Default() *Predictive {
	return NewPredictive(defaults.DefaultCorpus())
}
