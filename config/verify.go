package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrInvalidRelayConfig = errors.New("invalid relay config")

type DuplicateName struct {
	Cfg1Path string
	Cfg2Path string
	Name     string
}

func (err *DuplicateName) Error() string {
	return fmt.Sprintf("'%s' has been found in %s and %s", err.Name, err.Cfg1Path, err.Cfg2Path)
}

type MissingField struct {
	FilePath string
	Field    string
}

func (err *MissingField) Error() string {
	return fmt.Sprintf("%s is missing '%s'", err.FilePath, err.Field)
}

type InvalidValue struct {
	FilePath string
	Field    string
	Value    string
}

func (err *InvalidValue) Error() string {
	return fmt.Sprintf("%s has an invalid '%s': %q", err.FilePath, err.Field, err.Value)
}

// VerifyConfigs reports every problem it finds instead of stopping at the
// first one. Server names are compared case-insensitively.
func VerifyConfigs(cfgs []ServerConfig) []error {
	errs := []error{}
	names := make(map[string]int)
	for index, cfg := range cfgs {
		if cfg.Name == "" {
			errs = append(errs, &MissingField{FilePath: cfg.FilePath, Field: "name"})
		}
		if cfg.Address == "" {
			errs = append(errs, &MissingField{FilePath: cfg.FilePath, Field: "address"})
		}
		if _, err := time.ParseDuration(cfg.DialTimeout); err != nil {
			errs = append(errs, &InvalidValue{FilePath: cfg.FilePath, Field: "dialTimeout", Value: cfg.DialTimeout})
		}
		if _, err := time.ParseDuration(cfg.StateUpdateCooldown); err != nil {
			errs = append(errs, &InvalidValue{FilePath: cfg.FilePath, Field: "stateUpdateCooldown", Value: cfg.StateUpdateCooldown})
		}
		if cfg.StateOption != "" && !cfg.StateOption.Valid() {
			errs = append(errs, &InvalidValue{FilePath: cfg.FilePath, Field: "stateOption", Value: string(cfg.StateOption)})
		}
		if cfg.Name == "" {
			continue
		}
		key := strings.ToLower(cfg.Name)
		otherIndex, ok := names[key]
		if ok {
			errs = append(errs, &DuplicateName{
				Name:     cfg.Name,
				Cfg1Path: cfg.FilePath,
				Cfg2Path: cfgs[otherIndex].FilePath,
			})
			continue
		}
		names[key] = index
	}
	return errs
}

// VerifyServerConfigs adapts VerifyConfigs to a VerifyFunc, joining all
// problems into one error.
func VerifyServerConfigs(cfgs []ServerConfig) error {
	errs := VerifyConfigs(cfgs)
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return errors.Errorf("%d config problems: %s", len(errs), strings.Join(msgs, "; "))
}

func VerifyRelayConfig(cfg RelayConfig) error {
	if cfg.ListenTo == "" {
		return errors.Wrap(ErrInvalidRelayConfig, "listenTo is empty")
	}
	if cfg.NumberOfWorkers < 1 {
		return errors.Wrapf(ErrInvalidRelayConfig, "numberOfWorkers is %d", cfg.NumberOfWorkers)
	}
	if cfg.NumberOfListeners < 1 {
		return errors.Wrapf(ErrInvalidRelayConfig, "numberOfListeners is %d", cfg.NumberOfListeners)
	}
	if cfg.LobbyServer == "" {
		return errors.Wrap(ErrInvalidRelayConfig, "lobbyServer is empty")
	}
	if cfg.IOTimeout <= 0 {
		return errors.Wrapf(ErrInvalidRelayConfig, "ioTimeout is %s", cfg.IOTimeout)
	}
	return nil
}
