package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openvault/vaultsync/internal/server"
	"github.com/openvault/vaultsync/internal/server/blob"
	"github.com/openvault/vaultsync/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "vaultsync-server",
	Short:   "VaultSync Server CLI",
	Version: version.Detailed(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true

		slog.Info("starting", "app", version.ShortWithApp(), "config", cfg)

		s, err := server.New(cfg)
		if err != nil {
			return err
		}
		defer slog.Info("Bye!")
		return s.Start(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("bind", "b", server.DefaultAddr, "Address to bind the server")
	rootCmd.Flags().StringP("data-dir", "d", "./data", "Directory for the database and blobs")
	rootCmd.Flags().String("cert", "", "Path to the TLS certificate file")
	rootCmd.Flags().String("key", "", "Path to the TLS key file")
	rootCmd.Flags().StringP("config", "c", "", "Path to a config file")
}

func loadConfig(cmd *cobra.Command) (*server.Config, error) {
	// .env is optional; real env always wins.
	_ = godotenv.Load()

	if cmd.Flag("config").Changed {
		path, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config read '%s': %w", path, err)
		}
	} else {
		viper.SetConfigName("vaultsync-server")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/vaultsync")
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
			}
		}
	}

	viper.BindPFlag("http.addr", cmd.Flags().Lookup("bind"))
	viper.BindPFlag("http.cert_file", cmd.Flags().Lookup("cert"))
	viper.BindPFlag("http.key_file", cmd.Flags().Lookup("key"))
	viper.BindPFlag("data_dir", cmd.Flags().Lookup("data-dir"))

	viper.SetEnvPrefix("VAULTSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	cfg := &server.Config{
		HTTP: &server.HTTPConfig{
			Addr:     viper.GetString("http.addr"),
			CertFile: viper.GetString("http.cert_file"),
			KeyFile:  viper.GetString("http.key_file"),
		},
		DataDir: viper.GetString("data_dir"),
		Blob: &server.BlobConfig{
			Backend: viper.GetString("blob.backend"),
			Root:    viper.GetString("blob.root"),
		},
		Auth: &server.AuthConfig{
			APIKeys: viper.GetStringSlice("auth.api_keys"),
		},
	}
	if cfg.Blob.Backend == "s3" {
		cfg.Blob.S3 = &blob.S3Config{
			BucketName:    viper.GetString("blob.s3.bucket_name"),
			Region:        viper.GetString("blob.s3.region"),
			AccessKey:     viper.GetString("blob.s3.access_key"),
			SecretKey:     viper.GetString("blob.s3.secret_key"),
			Endpoint:      viper.GetString("blob.s3.endpoint"),
			UseAccelerate: viper.GetBool("blob.s3.use_accelerate"),
		}
	}
	return cfg, nil
}

func main() {
	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
