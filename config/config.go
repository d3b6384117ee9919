/*
Package config binds dayclockd's command-line flags and config file via
spf13/cobra + spf13/viper, the way the teacher's dagu-style sibling in the
retrieved pack wires its server command (cmd/config.go: flags registered
on the cobra.Command, then bound into viper so a config file, environment,
or flag can each set a value with flag taking precedence).
*/
package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Defaults mirror the teacher's cmd/server/main.go flag defaults, renamed
// to this domain.
const (
	DefaultPort           = 8080
	DefaultDBPath         = "dayclock.db"
	DefaultUserID         = "default"
	DefaultSaveInterval   = 10
	DefaultNotifyAheadMin = 10
	DefaultCronSpec       = "0 0 * * *"
)

// Config is the fully resolved runtime configuration for dayclockd.
type Config struct {
	Port            int
	DBPath          string
	UserID          string
	SaveInterval    int
	NotifyAheadMins int
	CronSpec        string
}

// BindFlags registers dayclockd's flags on cmd and binds them into v, so
// config file / environment / flag values all resolve through v.Get*.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	cmd.Flags().Int("port", DefaultPort, "HTTP server port")
	cmd.Flags().String("db", DefaultDBPath, "SQLite database path (\":memory:\" for in-memory)")
	cmd.Flags().String("user", DefaultUserID, "single-user identifier for this instance")
	cmd.Flags().Int("save-interval", DefaultSaveInterval, "ticks between durable flushes")
	cmd.Flags().Int("notify-ahead", DefaultNotifyAheadMin, "reminder lead time in minutes, used when settings cannot be read")
	cmd.Flags().String("cron", DefaultCronSpec, "cron spec for day finalization (local time)")
	cmd.Flags().String("config", "", "config file (default $HOME/.config/dayclock/config.yaml)")

	for _, name := range []string{"port", "db", "user", "save-interval", "notify-ahead", "cron", "config"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads any config file set via --config (or the default search
// path) and returns the resolved Config. Missing config files are not an
// error — flags and viper's own defaults still apply.
func Load(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.config/dayclock")
	v.AddConfigPath(".")

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}

	v.SetEnvPrefix("DAYCLOCK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{
		Port:            v.GetInt("port"),
		DBPath:          v.GetString("db"),
		UserID:          v.GetString("user"),
		SaveInterval:    v.GetInt("save-interval"),
		NotifyAheadMins: v.GetInt("notify-ahead"),
		CronSpec:        v.GetString("cron"),
	}, nil
}
