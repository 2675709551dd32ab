// Package leveldbstore implements mssmt.Store on top of LevelDB.
package leveldbstore

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config describes an on-disk LevelDB-backed store, decoded from a toml
// file on disk with github.com/BurntSushi/toml.
type Config struct {
	// Path is the directory LevelDB will open or create.
	Path string `toml:"path"`

	// Sync requests a synchronous write (fsync) for every mutation.
	// The teacher's own leveldbkv wrapper always does this; exposing it
	// here lets a caller trade durability for throughput.
	Sync bool `toml:"sync,omitempty"`
}

// DecodeConfigFile reads a toml-encoded Config from path.
func DecodeConfigFile(path string) (*Config, error) {
	conf := new(Config)
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, fmt.Errorf("failed to load leveldbstore config: %v", err)
	}
	return conf, nil
}

// EncodeConfig renders conf as toml.
func EncodeConfig(conf *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(conf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
