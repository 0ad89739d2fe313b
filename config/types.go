package config

import (
	"time"
)

const (
	MainConfigFileName = "relay.json"
	DefaultChannel     = "minibit:main"
	DefaultLobbyServer = "lobby"
)

type StateOption string

const (
	StateCache         StateOption = "cache"
	StateAlwaysOnline  StateOption = "alwaysOnline"
	StateAlwaysOffline StateOption = "alwaysOffline"
)

func (option StateOption) Valid() bool {
	switch option {
	case StateCache, StateAlwaysOnline, StateAlwaysOffline:
		return true
	}
	return false
}

type ServerConfigReader func() ([]ServerConfig, error)

type RelayConfigReader func() (RelayConfig, error)

type VerifyFunc func(cfgs []ServerConfig) error

// ServerConfig is the content of a single backend server file.
type ServerConfig struct {
	FilePath string `json:"-"`
	Name     string `json:"name"`
	Address  string `json:"address"`

	DialTimeout       string `json:"dialTimeout"`
	SendProxyProtocol bool   `json:"sendProxyProtocol"`

	StateOption         StateOption `json:"stateOption"`
	StateUpdateCooldown string      `json:"stateUpdateCooldown"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		DialTimeout:         "1s",
		SendProxyProtocol:   false,
		StateOption:         StateCache,
		StateUpdateCooldown: "5s",
	}
}

// BackendConfig is a verified ServerConfig with its values parsed.
type BackendConfig struct {
	Name                string
	Address             string
	DialTimeout         time.Duration
	SendProxyProtocol   bool
	StateOption         StateOption
	StateUpdateCooldown time.Duration
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"clientId"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topicPrefix"`
}

type RelayConfig struct {
	ListenTo            string        `mapstructure:"listenTo"`
	NumberOfWorkers     int           `mapstructure:"numberOfWorkers"`
	NumberOfListeners   int           `mapstructure:"numberOfListeners"`
	AcceptProxyProtocol bool          `mapstructure:"acceptProxyProtocol"`
	Channel             string        `mapstructure:"channel"`
	LobbyServer         string        `mapstructure:"lobbyServer"`
	EnablePrometheus    bool          `mapstructure:"enablePrometheus"`
	PrometheusBind      string        `mapstructure:"prometheusBind"`
	APIBind             string        `mapstructure:"apiBind"`
	UseTableflip        bool          `mapstructure:"useTableflip"`
	PidFile             string        `mapstructure:"pidFile"`
	IOTimeout           time.Duration `mapstructure:"ioTimeout"`
	RateLimit           int           `mapstructure:"rateLimit"`
	RateCooldown        time.Duration `mapstructure:"rateCooldown"`
	BanListCooldown     time.Duration `mapstructure:"banListCooldown"`
	LogLevel            string        `mapstructure:"logLevel"`
	LogPretty           bool          `mapstructure:"logPretty"`

	MQTT MQTTConfig `mapstructure:"mqtt"`
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		ListenTo:            ":25577",
		NumberOfWorkers:     10,
		NumberOfListeners:   1,
		AcceptProxyProtocol: false,
		Channel:             DefaultChannel,
		LobbyServer:         DefaultLobbyServer,
		EnablePrometheus:    true,
		PrometheusBind:      ":9100",
		APIBind:             "127.0.0.1:9099",
		UseTableflip:        false,
		PidFile:             "",
		IOTimeout:           time.Second,
		RateLimit:           0,
		RateCooldown:        time.Second,
		BanListCooldown:     5 * time.Minute,
		LogLevel:            "info",
		LogPretty:           false,
		MQTT: MQTTConfig{
			Enabled:     false,
			Broker:      "tcp://127.0.0.1:1883",
			ClientID:    "minibit-relay",
			TopicPrefix: "minibit/relay",
		},
	}
}
