package main

import (
	"errors"
	"io/fs"

	"github.com/BurntSushi/toml"
)

const defaultConfigFile = "ctopy.toml"

// config is the run manifest. All fields are optional; flags override
// file values.
type config struct {
	Output   string   `toml:"output"`
	Reserved []string `toml:"reserved"`
	Shims    bool     `toml:"shims"`
	Cache    string   `toml:"cache"`
}

func defaultConfig() *config {
	return &config{Shims: true}
}

// loadConfig reads the manifest at path, or ctopy.toml in the working
// directory when path is empty. A missing default manifest is not an
// error; a missing explicit one is.
func loadConfig(path string) (*config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, &unknownKeyError{path: path, key: undecoded[0].String()}
	}
	return cfg, nil
}

type unknownKeyError struct {
	path string
	key  string
}

func (e *unknownKeyError) Error() string {
	return e.path + ": unknown key " + e.key
}
