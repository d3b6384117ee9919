package config_test

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/kvaranth/dayclock/config"
)

func newBoundCommand(t *testing.T) (*cobra.Command, *viper.Viper) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	v := viper.New()
	require.NoError(t, config.BindFlags(cmd, v))
	return cmd, v
}

func TestBindFlags_Defaults_MatchPackageConstants(t *testing.T) {
	_, v := newBoundCommand(t)

	cfg, err := config.Load(v)
	require.NoError(t, err)
	require.Equal(t, config.DefaultPort, cfg.Port)
	require.Equal(t, config.DefaultDBPath, cfg.DBPath)
	require.Equal(t, config.DefaultUserID, cfg.UserID)
	require.Equal(t, config.DefaultSaveInterval, cfg.SaveInterval)
	require.Equal(t, config.DefaultNotifyAheadMin, cfg.NotifyAheadMins)
	require.Equal(t, config.DefaultCronSpec, cfg.CronSpec)
}

func TestBindFlags_ExplicitFlag_OverridesDefault(t *testing.T) {
	cmd, v := newBoundCommand(t)
	require.NoError(t, cmd.Flags().Set("port", "9090"))
	require.NoError(t, cmd.Flags().Set("user", "alice"))

	cfg, err := config.Load(v)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, "alice", cfg.UserID)
}

func TestBindFlags_MissingConfigFile_IsNotAnError(t *testing.T) {
	_, v := newBoundCommand(t)
	_, err := config.Load(v)
	require.NoError(t, err)
}
