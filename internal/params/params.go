// Package params holds the operator-facing run parameters and turns them
// into a canvas spec.
package params

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lienzo/internal/batch"
	"lienzo/internal/canvas"
	"lienzo/internal/fetch"
	"lienzo/internal/pkg/errors"
)

const (
	DefaultWidth         = 2200
	DefaultHeight        = 2200
	DefaultDPI           = 72
	DefaultMarginCm      = 1.0
	DefaultWorkspaceName = "downloaded_images"
	DefaultJPEGQuality   = 95
	DefaultWorkers       = 1
	MaxFetchTimeout      = 60
	cmPerInch            = 2.54
)

// Params are the values an operator can set for a run.
type Params struct {
	Width               int                `json:"width" yaml:"width"`
	Height              int                `json:"height" yaml:"height"`
	DPI                 int                `json:"dpi" yaml:"dpi"`
	MarginCm            float64            `json:"margin_cm" yaml:"margin_cm"`
	ColumnPairs         []batch.ColumnPair `json:"column_pairs,omitempty" yaml:"column_pairs,omitempty"`
	WorkspaceName       string             `json:"workspace_name" yaml:"workspace_name"`
	JPEGQuality         int                `json:"jpeg_quality" yaml:"jpeg_quality"`
	Workers             int                `json:"workers" yaml:"workers"`
	FetchTimeoutSeconds int                `json:"fetch_timeout_seconds" yaml:"fetch_timeout_seconds"`
}

// Default returns the standard 2200x2200 px, 72 dpi, 1 cm margin setup.
func Default() Params {
	return Params{
		Width:               DefaultWidth,
		Height:              DefaultHeight,
		DPI:                 DefaultDPI,
		MarginCm:            DefaultMarginCm,
		WorkspaceName:       DefaultWorkspaceName,
		JPEGQuality:         DefaultJPEGQuality,
		Workers:             DefaultWorkers,
		FetchTimeoutSeconds: int(fetch.DefaultTimeout / time.Second),
	}
}

// MarginPx converts the margin to pixels, truncating.
func (p Params) MarginPx() int {
	return int(p.MarginCm / cmPerInch * float64(p.DPI))
}

// Spec validates the canvas geometry.
func (p Params) Spec() (canvas.Spec, error) {
	if p.MarginCm < 0 {
		return canvas.Spec{}, errors.Config("margin_cm must not be negative, got %g", p.MarginCm)
	}
	return canvas.NewSpec(p.Width, p.Height, p.MarginPx(), p.DPI)
}

// Validate checks every field. Table runs need at least one column pair;
// pass requirePairs=false for upload runs.
func (p Params) Validate(requirePairs bool) error {
	if _, err := p.Spec(); err != nil {
		return err
	}
	if p.JPEGQuality < 1 || p.JPEGQuality > 100 {
		return errors.Config("jpeg_quality must be between 1 and 100, got %d", p.JPEGQuality)
	}
	if p.Workers < 1 || p.Workers > batch.MaxWorkers {
		return errors.Config("workers must be between 1 and %d, got %d", batch.MaxWorkers, p.Workers)
	}
	if p.FetchTimeoutSeconds < 1 || p.FetchTimeoutSeconds > MaxFetchTimeout {
		return errors.Config("fetch_timeout_seconds must be between 1 and %d, got %d", MaxFetchTimeout, p.FetchTimeoutSeconds)
	}
	if err := validWorkspaceName(p.WorkspaceName); err != nil {
		return err
	}
	if requirePairs && len(p.ColumnPairs) == 0 {
		return errors.Config("at least one column pair is required")
	}
	for _, cp := range p.ColumnPairs {
		if strings.TrimSpace(cp.File) == "" || strings.TrimSpace(cp.Link) == "" {
			return errors.Config("column pair %q has an empty side", cp.String())
		}
	}
	return nil
}

// FetchTimeout is the per-request bound.
func (p Params) FetchTimeout() time.Duration {
	return time.Duration(p.FetchTimeoutSeconds) * time.Second
}

// ArchiveName is "<workspace_name>.zip".
func (p Params) ArchiveName() string {
	return p.WorkspaceName + ".zip"
}

func validWorkspaceName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.Config("workspace_name must not be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errors.Config("workspace_name %q must be a plain name", name)
	}
	return nil
}

// ParseColumnPairs parses "File1:Link1,File2:Link2". Spaces around names are
// trimmed.
func ParseColumnPairs(s string) ([]batch.ColumnPair, error) {
	var pairs []batch.ColumnPair
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := ParseColumnPair(part)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// ParseColumnPair parses one "File:Link".
func ParseColumnPair(s string) (batch.ColumnPair, error) {
	file, link, ok := strings.Cut(s, ":")
	file, link = strings.TrimSpace(file), strings.TrimSpace(link)
	if !ok || file == "" || link == "" {
		return batch.ColumnPair{}, errors.Config("column pair %q must look like FileColumn:LinkColumn", s)
	}
	return batch.ColumnPair{File: file, Link: link}, nil
}

// LoadFile reads YAML over the defaults; fields absent from the file keep
// their default value.
func LoadFile(path string) (Params, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read params %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, errors.WrapWithCode(err, errors.CodeConfig, "params.load", "invalid params file "+path)
	}
	return p, nil
}
