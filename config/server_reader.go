package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

var ErrNoConfigFiles = errors.New("no config files found")

func NewServerConfigFileReader(path string, verifier VerifyFunc) serverConfigFileReader {
	return serverConfigFileReader{
		path:     path,
		verifier: verifier,
	}
}

type serverConfigFileReader struct {
	path     string
	verifier VerifyFunc
}

func (reader serverConfigFileReader) Read() ([]ServerConfig, error) {
	cfgs, err := ReadServerConfigs(reader.path)
	if err != nil {
		return nil, err
	}
	err = reader.verifier(cfgs)
	if err != nil {
		return cfgs, err
	}
	return cfgs, nil
}

// ReadServerConfigs loads every .json file below path except the main
// config file.
func ReadServerConfigs(path string) ([]ServerConfig, error) {
	var cfgs []ServerConfig
	var filePaths []string
	err := filepath.Walk(path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".json" {
			return nil
		}
		if info.Name() == MainConfigFileName {
			return nil
		}
		filePaths = append(filePaths, path)
		return nil
	})
	if len(filePaths) == 0 {
		return cfgs, ErrNoConfigFiles
	}
	if err != nil {
		return cfgs, err
	}
	for _, filePath := range filePaths {
		cfg, err := LoadServerCfgFromPath(filePath)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, nil
}

func LoadServerCfgFromPath(path string) (ServerConfig, error) {
	bb, err := os.ReadFile(path)
	if err != nil {
		return ServerConfig{}, err
	}
	cfg := DefaultServerConfig()
	if err := json.Unmarshal(bb, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing %s", path)
	}
	cfg.FilePath = path
	return cfg, nil
}

func ServerToBackendConfig(cfg ServerConfig) (BackendConfig, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return BackendConfig{}, errors.Wrapf(err, "%s: dialTimeout", cfg.Name)
	}
	cooldown, err := time.ParseDuration(cfg.StateUpdateCooldown)
	if err != nil {
		return BackendConfig{}, errors.Wrapf(err, "%s: stateUpdateCooldown", cfg.Name)
	}
	option := cfg.StateOption
	if option == "" {
		option = StateCache
	}
	return BackendConfig{
		Name:                cfg.Name,
		Address:             cfg.Address,
		DialTimeout:         dialTimeout,
		SendProxyProtocol:   cfg.SendProxyProtocol,
		StateOption:         option,
		StateUpdateCooldown: cooldown,
	}, nil
}
