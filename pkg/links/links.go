package links

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/samvad-link-scrapper/internal/domain"
	"github.com/samvad-hq/samvad-link-scrapper/pkg/clients"
)

// Package links loads the tracked-link list maintained by subscription management.

// Entry is one tracked link as declared in the links file.
type Entry struct {
	URL         string  `json:"url" yaml:"url"`
	Subscribers []int64 `json:"subscribers" yaml:"subscribers"`
}

type configFile struct {
	Links []Entry `json:"links" yaml:"links"`
}

// Load reads the links file, normalizes every URL and merges duplicates.
// Entries are returned in first-seen order.
func Load(path string) ([]domain.TrackedLink, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("links file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open links file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read links file: %w", err)
	}

	parsed, err := parse(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return Merge(parsed.Links)
}

func parse(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var errs []error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var cfg configFile
		if err := d.fn(data, &cfg); err != nil {
			errs = append(errs, fmt.Errorf("decode %s links: %w", d.name, err))
			continue
		}
		return cfg, nil
	}
	if len(errs) > 0 {
		return configFile{}, errors.Join(errs...)
	}
	return configFile{}, errors.New("links file format not recognized (expected YAML or JSON)")
}

// Merge normalizes entries and folds duplicates into one TrackedLink with the
// union of their subscribers.
func Merge(entries []Entry) ([]domain.TrackedLink, error) {
	out := make([]domain.TrackedLink, 0, len(entries))
	idx := make(map[string]int, len(entries))

	for i, e := range entries {
		link, err := clients.NormalizeLink(e.URL)
		if err != nil {
			return nil, fmt.Errorf("links[%d]: %w", i, err)
		}

		pos, ok := idx[link]
		if !ok {
			pos = len(out)
			idx[link] = pos
			out = append(out, domain.TrackedLink{URL: link})
		}
		for _, sub := range e.Subscribers {
			if !slices.Contains(out[pos].Subscribers, sub) {
				out[pos].Subscribers = append(out[pos].Subscribers, sub)
			}
		}
	}
	return out, nil
}

// URLs returns the link URLs in order.
func URLs(tracked []domain.TrackedLink) []string {
	out := make([]string, 0, len(tracked))
	for _, t := range tracked {
		out = append(out, t.URL)
	}
	return out
}
