package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rimdb/rim/internal/cas/auth"
	"github.com/rimdb/rim/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file and bootstrap DBA account",
	Long: `Initialize a sample rim configuration file with a freshly generated
bootstrap DBA account.

By default, the configuration file is created at
$XDG_CONFIG_HOME/rim/config.yaml. Use --config to specify a custom path.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()
	configPath := configFile
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.GetDefaultConfig()

	password, err := randomPassword()
	if err != nil {
		return fmt.Errorf("failed to generate bootstrap password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}
	cfg.Admin.Username = "dba"
	cfg.Admin.PasswordHash = hash

	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nBootstrap DBA account:")
	fmt.Printf("  username: %s\n", cfg.Admin.Username)
	fmt.Printf("  password: %s\n", password)
	fmt.Println("  (this password is shown once; it is not stored in plaintext anywhere)")
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the CAS process with: rim start")
	fmt.Printf("  3. Or specify a custom config: rim start --config %s\n", configPath)

	return nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
