package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ScannerConfig restricts which detections the scanner accepts.
type ScannerConfig struct {
	// Region is the region of interest as "x,y,width,height" in normalized coordinates.
	Region string `env:"REGION" envDefault:"0.1,0.35,0.8,0.3"`
	// Symbologies lists the accepted barcode symbologies.
	Symbologies []string `env:"SYMBOLOGIES" envDefault:"ean13,upc_a,ean8,upc_e,itf14,code128" envSeparator:","`
}

// Sanitize lower-cases and de-duplicates symbology names.
func (c *ScannerConfig) Sanitize() {
	seen := make(map[string]struct{}, len(c.Symbologies))
	out := c.Symbologies[:0]
	for _, s := range c.Symbologies {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	c.Symbologies = out
	c.Region = strings.TrimSpace(c.Region)
}

// ParsedRegion returns the region of interest as four floats. An empty
// region means the full frame.
func (c *ScannerConfig) ParsedRegion() ([4]float64, error) {
	if c.Region == "" {
		return [4]float64{0, 0, 1, 1}, nil
	}
	parts := strings.Split(c.Region, ",")
	if len(parts) != 4 {
		return [4]float64{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}
	var out [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return [4]float64{}, fmt.Errorf("value %d: %w", i, err)
		}
		if v < 0 || v > 1 {
			return [4]float64{}, fmt.Errorf("value %d out of range [0,1]: %v", i, v)
		}
		out[i] = v
	}
	if out[2] == 0 || out[3] == 0 {
		return [4]float64{}, fmt.Errorf("width and height must be positive")
	}
	return out, nil
}
