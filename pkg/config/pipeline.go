package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/descriptorset"
	"github.com/quiverml/quiver/pkg/generator"
	"github.com/quiverml/quiver/pkg/nnindex"
	"github.com/quiverml/quiver/pkg/plugin"
)

// Pipeline is the declarative description of a retrieval pipeline: one
// pluggable-slot tree per component. YAML and JSON both decode into it.
type Pipeline struct {
	Factory   plugin.Config `yaml:"factory" json:"factory"`
	Generator plugin.Config `yaml:"generator" json:"generator"`
	Set       plugin.Config `yaml:"set" json:"set"`
	Index     plugin.Config `yaml:"index" json:"index"`
}

// DefaultPipeline is the pipeline used when no definition file is given:
// in-memory elements, byte histogram descriptors, an in-memory set, and an
// exact linear index.
func DefaultPipeline() Pipeline {
	return Pipeline{
		Factory:   descriptor.DefaultFactoryConfig(),
		Generator: plugin.DefaultSlot(generator.InterfaceName, "byte-histogram"),
		Set:       plugin.DefaultSlot(descriptorset.InterfaceName, "memory"),
		Index:     plugin.DefaultSlot(nnindex.InterfaceName, "linear"),
	}
}

// LoadPipeline reads a pipeline definition file. Missing components fall
// back to their defaults.
func LoadPipeline(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("reading pipeline file %s: %w", path, err)
	}
	return ParsePipeline(b)
}

// ParsePipeline decodes a pipeline definition from YAML or JSON bytes.
func ParsePipeline(b []byte) (Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Pipeline{}, fmt.Errorf("decoding pipeline definition: %w", err)
	}

	defaults := DefaultPipeline()
	if p.Factory == nil {
		p.Factory = defaults.Factory
	}
	if p.Generator == nil {
		p.Generator = defaults.Generator
	}
	if p.Set == nil {
		p.Set = defaults.Set
	}
	if p.Index == nil {
		p.Index = defaults.Index
	}
	return p, nil
}
