package configs

import (
	"bytes"
	"path/filepath"

	"github.com/illikainen/snapback/src/envx"
	"github.com/illikainen/snapback/src/secrets"

	"github.com/illikainen/go-utils/src/iofs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// SecretConfig declares one secret backend.  Env is the backend's
// private alias mapping; Config holds backend-specific options.
type SecretConfig struct {
	Type   string         `yaml:"type"`
	Env    envx.Env       `yaml:"env"`
	Config map[string]any `yaml:"config"`
}

type Config struct {
	BackupsPath     string          `yaml:"backupsPath"`
	DefinitionsPath string          `yaml:"definitionsPath"`
	HooksPath       string          `yaml:"hooksPath"`
	Env             envx.Env        `yaml:"env"`
	Secrets         []*SecretConfig `yaml:"secrets"`
	Path            string          `yaml:"-"`
}

type Options struct {
	Path         string
	AllowMissing bool
}

// Load reads the program configuration.  DefinitionsPath and HooksPath
// default to the tasks and hooks directories next to the configuration
// file.
func Load(opts *Options) (*Config, error) {
	config := &Config{Path: opts.Path}

	exists, err := iofs.Exists(opts.Path)
	if err != nil {
		return nil, err
	}

	if exists {
		data, err := iofs.ReadFile(opts.Path)
		if err != nil {
			return nil, err
		}

		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)

		err = decoder.Decode(config)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", opts.Path)
		}
		config.Path = opts.Path
	} else if !opts.AllowMissing {
		return nil, errors.Errorf("configuration file %s does not exist", opts.Path)
	}

	dir := filepath.Dir(opts.Path)
	if config.DefinitionsPath == "" {
		config.DefinitionsPath = filepath.Join(dir, "tasks")
	}
	if config.HooksPath == "" {
		config.HooksPath = filepath.Join(dir, "hooks")
	}

	log.Debugf("definitions directory: %s", config.DefinitionsPath)
	log.Debugf("hooks directory: %s", config.HooksPath)

	return config, nil
}

// Validate checks the fields a backup run requires.
func (c *Config) Validate() error {
	if c.BackupsPath == "" {
		return errors.Errorf("backupsPath must be configured")
	}
	return nil
}

// Backends instantiates the configured secret backends in declaration
// order.
func (c *Config) Backends() ([]*secrets.Ref, error) {
	refs := []*secrets.Ref{}
	for _, sc := range c.Secrets {
		backend, err := secrets.Lookup(sc.Type, sc.Config)
		if err != nil {
			return nil, err
		}

		refs = append(refs, &secrets.Ref{
			Type:    sc.Type,
			Env:     sc.Env,
			Backend: backend,
		})
	}

	return refs, nil
}
