package configuration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	AppPort        int      `mapstructure:"app_port"`
	SocketPort     int      `mapstructure:"socket_port"`
	SocketRoute    string   `mapstructure:"socket_route"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MongoConfig struct {
	URI                 string `mapstructure:"uri"`
	Database            string `mapstructure:"database"`
	MessagesCollection  string `mapstructure:"messages_collection"`
	ChatsCollection     string `mapstructure:"chats_collection"`
	ReactionsCollection string `mapstructure:"reactions_collection"`
	UsersCollection     string `mapstructure:"users_collection"`
}

type RevocationConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret  string           `mapstructure:"jwt_secret"`
	Revocation RevocationConfig `mapstructure:"revocation"`
}

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	Auth   AuthConfig   `mapstructure:"auth"`
}

// LoadConfig reads configs/config.yaml, allowing CHATAPP_-prefixed
// environment variables to override any key (CHATAPP_AUTH_JWT_SECRET, …).
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")

	viper.SetEnvPrefix("CHATAPP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret must be set")
	}

	return &cfg, nil
}
