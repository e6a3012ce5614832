// Package settings loads process configuration for the autodrive binary.
//
// Values come from, in increasing priority: built-in defaults, an optional
// autodrive.yaml (or .json/.toml) file, a .env file and AUTODRIVE_*
// environment variables. CLI flags are applied on top by the caller.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. AUTODRIVE_PORT
const EnvPrefix = "AUTODRIVE"

// NgrokSettings configures the optional public tunnel
type NgrokSettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	Authtoken string `mapstructure:"authtoken"`
	Domain    string `mapstructure:"domain"`
}

// Settings is the resolved process configuration
type Settings struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ScenariosDir string        `mapstructure:"scenarios_dir"`
	LogLevel     string        `mapstructure:"log_level"`
	LogPretty    bool          `mapstructure:"log_pretty"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	Ngrok        NgrokSettings `mapstructure:"ngrok"`

	// ConfigFile is the file that was read, empty when none was found
	ConfigFile string `mapstructure:"-"`
}

// Addr returns host:port
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 8080)
	v.SetDefault("scenarios_dir", "scenarios")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", true)
	v.SetDefault("session_ttl", 24*time.Hour)

	v.SetDefault("ngrok.enabled", false)
	v.SetDefault("ngrok.authtoken", "")
	v.SetDefault("ngrok.domain", "")
}

// LoadEnv loads .env style files into the process environment. Missing
// files are ignored and existing variables are not overridden.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", file, err)
		}
	}
	return nil
}

// Load resolves the settings. configFile selects an explicit file; when
// empty, autodrive.* is searched in the working directory and
// $HOME/.config/autodrive and its absence is not an error.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The ngrok agent's own variable is honored as well
	if token := os.Getenv("NGROK_AUTHTOKEN"); token != "" {
		v.SetDefault("ngrok.authtoken", token)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("autodrive")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/autodrive")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error decoding settings: %w", err)
	}
	s.ConfigFile = v.ConfigFileUsed()

	if s.Port <= 0 || s.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", s.Port)
	}
	if s.SessionTTL <= 0 {
		return nil, fmt.Errorf("session_ttl must be positive, got %s", s.SessionTTL)
	}

	return &s, nil
}
