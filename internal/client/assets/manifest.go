package assets

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/louisbranch/deepspire/internal/protocol"
)

//go:embed manifest.yaml
var embeddedManifestFS embed.FS

var defaultManifest = mustLoadEmbedded()

// Manifest maps stable client-side names to asset references. The client
// uses it to pick sounds and effects for optimistic updates; authoritative
// batches carry their own references.
type Manifest struct {
	Sounds  map[string]protocol.AssetRef `yaml:"sounds"`
	Music   map[string]protocol.AssetRef `yaml:"music"`
	Effects map[string]protocol.AssetRef `yaml:"effects"`
	Sprites map[string]protocol.AssetRef `yaml:"sprites"`
}

// Default returns the process-wide embedded manifest.
func Default() *Manifest {
	return defaultManifest
}

// Load parses a YAML manifest document.
func Load(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse asset manifest: %w", err)
	}
	return &m, nil
}

// LoadEmbedded parses the manifest embedded in this package.
func LoadEmbedded() (*Manifest, error) {
	data, err := embeddedManifestFS.ReadFile("manifest.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded manifest: %w", err)
	}
	return Load(data)
}

func mustLoadEmbedded() *Manifest {
	m, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	return m
}

// Sound resolves a named sound, returning an empty ref when unmapped so
// callers can emit commands unconditionally.
func (m *Manifest) Sound(name string) protocol.AssetRef {
	if m == nil {
		return ""
	}
	return m.Sounds[name]
}

// MusicTrack resolves a named music track.
func (m *Manifest) MusicTrack(name string) protocol.AssetRef {
	if m == nil {
		return ""
	}
	return m.Music[name]
}

// Effect resolves a named effect.
func (m *Manifest) Effect(name string) protocol.AssetRef {
	if m == nil {
		return ""
	}
	return m.Effects[name]
}

// Sprite resolves a named sprite.
func (m *Manifest) Sprite(name string) protocol.AssetRef {
	if m == nil {
		return ""
	}
	return m.Sprites[name]
}
