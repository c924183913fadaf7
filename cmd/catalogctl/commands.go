package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"portfolioapi/internal/assetref"
	"portfolioapi/internal/auth"
	"portfolioapi/internal/bootstrap"
	"portfolioapi/internal/config"
	"portfolioapi/internal/database"
	"portfolioapi/internal/logger"
	"portfolioapi/internal/repository"
	"portfolioapi/internal/service"
	"portfolioapi/internal/sweeper"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Maintenance commands for the portfolio catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newSweepCmd(),
		newCategoriesCmd(),
		newDecodeURLCmd(),
		newTokenCmd(),
	)
	return root
}

func loadConfig(cmd *cobra.Command) (*config.AppConfig, *zap.Logger, error) {
	cfg := config.Load()
	log, err := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format, time.UTC)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres catalog schema if it is missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.DocStore != config.DocStorePostgres {
				return fmt.Errorf("migrate needs DOC_STORE=%s, got %q", config.DocStorePostgres, cfg.DocStore)
			}
			db, err := database.OpenCatalog(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newSweepCmd() *cobra.Command {
	var grace time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete blobs under the image folder that no project references",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			b, err := bootstrap.Open(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()

			if !cmd.Flags().Changed("grace") {
				grace = cfg.Sweep.Grace
			}
			res, err := sweeper.New(b.Projects, b.Store, cfg.Ingest.Folder, grace, log).Sweep(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd, res)
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", 24*time.Hour, "skip blobs younger than this")
	return cmd
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print the category filter values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			b, err := bootstrap.Open(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()

			items, err := b.Projects.List(cmd.Context(), repository.ProjectQuery{})
			if err != nil {
				return err
			}
			return writeJSON(cmd, service.Categories(items))
		},
	}
}

func newDecodeURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode-url [url]",
		Short: "Print the storage path a retrieval URL points at",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := assetref.DecodePath(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token for AUTH_MODE=jwt",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("AUTH_JWT_SECRET is not set")
			}
			tok, err := auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.AdminEmails).Issue(email, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email to put in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
