package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openvault/vaultsync/internal/client/config"
)

func init() {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	var serverURL string
	var apiKey string
	var vaultID string
	var vaultDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize vault sync settings",
		Run: func(cmd *cobra.Command, args []string) {
			path := settingsPath(cmd)

			if cfg, err := config.Load(path); err == nil {
				fmt.Println("Vault already initialized")
				fmt.Printf("Settings:  %s\n", green(cfg.Path))
				fmt.Printf("Server:    %s\n", cyan(cfg.ServerURL))
				fmt.Printf("Vault ID:  %s\n", cyan(cfg.VaultID))
				fmt.Printf("Vault Dir: %s\n", cyan(cfg.VaultDir))
				os.Exit(0)
			}

			if vaultDir == "" {
				fmt.Printf("%s: %s\n", red("ERROR"), "vault-dir is required")
				os.Exit(1)
			}
			if apiKey == "" {
				fmt.Printf("%s: %s\n", red("ERROR"), "api-key is required")
				os.Exit(1)
			}

			cfg := config.Default()
			cfg.Path = path
			cfg.ServerURL = serverURL
			cfg.APIKey = apiKey
			cfg.VaultDir = vaultDir
			if vaultID != "" {
				cfg.VaultID = vaultID
			}

			if err := cfg.Save(); err != nil {
				fmt.Printf("%s: %s\n", red("ERROR"), err)
				os.Exit(1)
			}

			fmt.Println("Vault sync initialized")
			fmt.Printf("Settings:  %s\n", green(cfg.Path))
			fmt.Printf("Server:    %s\n", cyan(cfg.ServerURL))
			fmt.Printf("Vault ID:  %s\n", cyan(cfg.VaultID))
			fmt.Printf("Vault Dir: %s\n", cyan(cfg.VaultDir))
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&serverURL, "server", "s", config.DefaultServerURL, "sync server URL")
	cmd.Flags().StringVarP(&apiKey, "api-key", "k", "", "API key for the sync server")
	cmd.Flags().StringVarP(&vaultID, "vault-id", "i", "", "vault namespace on the server")
	cmd.Flags().StringVarP(&vaultDir, "vault-dir", "d", "", "local vault directory")

	return cmd
}
