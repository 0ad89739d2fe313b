package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

func NewRelayConfigFileReader(dir string) RelayConfigReader {
	return relayConfigFileReader{
		path: filepath.Join(dir, MainConfigFileName),
	}.Read
}

type relayConfigFileReader struct {
	path string
}

func (reader relayConfigFileReader) Read() (RelayConfig, error) {
	return ReadRelayConfig(reader.path)
}

// ReadRelayConfig reads the main config file. A missing file is not an
// error, the defaults and RELAY_ environment variables are used instead.
func ReadRelayConfig(path string) (RelayConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultRelayConfig())

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return RelayConfig{}, errors.Wrapf(err, "reading %s", path)
	}

	var cfg RelayConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return RelayConfig{}, errors.Wrap(err, "parsing relay config")
	}
	if err := VerifyRelayConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg RelayConfig) {
	v.SetDefault("listenTo", cfg.ListenTo)
	v.SetDefault("numberOfWorkers", cfg.NumberOfWorkers)
	v.SetDefault("numberOfListeners", cfg.NumberOfListeners)
	v.SetDefault("acceptProxyProtocol", cfg.AcceptProxyProtocol)
	v.SetDefault("channel", cfg.Channel)
	v.SetDefault("lobbyServer", cfg.LobbyServer)
	v.SetDefault("enablePrometheus", cfg.EnablePrometheus)
	v.SetDefault("prometheusBind", cfg.PrometheusBind)
	v.SetDefault("apiBind", cfg.APIBind)
	v.SetDefault("useTableflip", cfg.UseTableflip)
	v.SetDefault("pidFile", cfg.PidFile)
	v.SetDefault("ioTimeout", cfg.IOTimeout)
	v.SetDefault("rateLimit", cfg.RateLimit)
	v.SetDefault("rateCooldown", cfg.RateCooldown)
	v.SetDefault("banListCooldown", cfg.BanListCooldown)
	v.SetDefault("logLevel", cfg.LogLevel)
	v.SetDefault("logPretty", cfg.LogPretty)
	v.SetDefault("mqtt.enabled", cfg.MQTT.Enabled)
	v.SetDefault("mqtt.broker", cfg.MQTT.Broker)
	v.SetDefault("mqtt.clientId", cfg.MQTT.ClientID)
	v.SetDefault("mqtt.username", cfg.MQTT.Username)
	v.SetDefault("mqtt.password", cfg.MQTT.Password)
	v.SetDefault("mqtt.topicPrefix", cfg.MQTT.TopicPrefix)
}
