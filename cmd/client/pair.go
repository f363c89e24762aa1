package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openvault/vaultsync/internal/client/config"
	"github.com/openvault/vaultsync/internal/setupuri"
)

func init() {
	rootCmd.AddCommand(newPairCmd())
}

func newPairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Share or apply connection settings via a pairing URI",
	}
	cmd.AddCommand(newPairShareCmd(), newPairApplyCmd())
	return cmd
}

func newPairShareCmd() *cobra.Command {
	var passphrase string

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Print a pairing URI for this vault's connection settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if passphrase == "" {
				fmt.Print("Passphrase: ")
				passphrase = readLine()
			}
			if passphrase == "" {
				return fmt.Errorf("passphrase is required")
			}

			uri, err := setupuri.Encode(&setupuri.Payload{
				ServerURL: settings.ServerURL,
				APIKey:    settings.APIKey,
				VaultID:   settings.VaultID,
			}, passphrase)
			if err != nil {
				return err
			}

			fmt.Println(uri)
			return nil
		},
	}
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the URI")
	return cmd
}

func newPairApplyCmd() *cobra.Command {
	var passphrase string
	var vaultDir string

	cmd := &cobra.Command{
		Use:   "apply <uri>",
		Short: "Apply a pairing URI to this machine's settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			if passphrase == "" {
				fmt.Print("Passphrase: ")
				passphrase = readLine()
			}

			payload, err := setupuri.Decode(args[0], passphrase)
			if err != nil {
				return err
			}

			path := settingsPath(cmd)
			settings, err := config.Load(path)
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					return err
				}
				settings = config.Default()
				settings.Path = path
			}
			settings.ServerURL = payload.ServerURL
			settings.APIKey = payload.APIKey
			if payload.VaultID != "" {
				settings.VaultID = payload.VaultID
			}
			if vaultDir != "" {
				settings.VaultDir = vaultDir
			}

			if err := settings.Save(); err != nil {
				return err
			}

			fmt.Println("Pairing applied")
			fmt.Printf("Settings:  %s\n", green(settings.Path))
			fmt.Printf("Server:    %s\n", cyan(settings.ServerURL))
			fmt.Printf("Vault ID:  %s\n", cyan(settings.VaultID))
			if settings.VaultDir == "" {
				fmt.Printf("%s: set the vault directory with --vault-dir or init\n", red("NOTE"))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the URI")
	cmd.Flags().StringVarP(&vaultDir, "vault-dir", "d", "", "local vault directory")
	return cmd
}
