// Package config provides configuration types for claudeflow: per-query
// options, credential and preset providers, and the YAML config file.
package config

import (
	"context"
	"maps"
	"slices"
)

// EnvProvider supplies environment variables, typically credentials, right
// before an agent process is spawned.
type EnvProvider interface {
	Environment(ctx context.Context) (map[string]string, error)
}

// EnvProviderFunc adapts a function to EnvProvider.
type EnvProviderFunc func(ctx context.Context) (map[string]string, error)

// Environment implements EnvProvider.
func (f EnvProviderFunc) Environment(ctx context.Context) (map[string]string, error) {
	return f(ctx)
}

// StaticEnv is an EnvProvider that always returns the same variables.
type StaticEnv map[string]string

// Environment implements EnvProvider.
func (e StaticEnv) Environment(context.Context) (map[string]string, error) {
	return maps.Clone(map[string]string(e)), nil
}

// Compile-time verification that the providers implement their interfaces.
var (
	_ EnvProvider    = EnvProviderFunc(nil)
	_ EnvProvider    = StaticEnv(nil)
	_ PresetProvider = Presets(nil)
)

// Preset is a named set of default options.
//
//nolint:tagliatelle // config files use snake_case keys
type Preset struct {
	Model              string            `yaml:"model"`
	SystemPrompt       string            `yaml:"system_prompt"`
	AppendSystemPrompt string            `yaml:"append_system_prompt"`
	PermissionMode     string            `yaml:"permission_mode"`
	MaxTurns           int               `yaml:"max_turns"`
	Cwd                string            `yaml:"cwd"`
	AllowedTools       []string          `yaml:"allowed_tools"`
	DisallowedTools    []string          `yaml:"disallowed_tools"`
	Env                map[string]string `yaml:"env"`
}

// Apply copies the preset's non-zero fields into o.
func (p *Preset) Apply(o *Options) {
	if p == nil {
		return
	}

	if p.Model != "" {
		o.Model = p.Model
	}

	if p.SystemPrompt != "" {
		o.SystemPrompt = p.SystemPrompt
	}

	if p.AppendSystemPrompt != "" {
		o.AppendSystemPrompt = p.AppendSystemPrompt
	}

	if p.PermissionMode != "" {
		o.PermissionMode = p.PermissionMode
	}

	if p.MaxTurns > 0 {
		o.MaxTurns = p.MaxTurns
	}

	if p.Cwd != "" {
		o.Cwd = p.Cwd
	}

	if len(p.AllowedTools) > 0 {
		o.AllowedTools = slices.Clone(p.AllowedTools)
	}

	if len(p.DisallowedTools) > 0 {
		o.DisallowedTools = slices.Clone(p.DisallowedTools)
	}

	if len(p.Env) > 0 {
		if o.Env == nil {
			o.Env = make(map[string]string, len(p.Env))
		}

		maps.Copy(o.Env, p.Env)
	}
}

// PresetProvider looks up presets by name.
type PresetProvider interface {
	Preset(name string) (*Preset, bool)
}

// Presets is a map-backed PresetProvider.
type Presets map[string]*Preset

// Preset implements PresetProvider.
func (p Presets) Preset(name string) (*Preset, bool) {
	preset, ok := p[name]

	return preset, ok
}
