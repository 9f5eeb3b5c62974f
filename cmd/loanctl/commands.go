package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/bulk-loan-api/internal/dto"
	"github.com/noah-isme/bulk-loan-api/internal/inventory"
	"github.com/noah-isme/bulk-loan-api/internal/repository"
	"github.com/noah-isme/bulk-loan-api/internal/service"
	"github.com/noah-isme/bulk-loan-api/migrations"
	"github.com/noah-isme/bulk-loan-api/pkg/config"
	"github.com/noah-isme/bulk-loan-api/pkg/database"
	"github.com/noah-isme/bulk-loan-api/pkg/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "loanctl",
		Short:         "Operator tooling for the bulk loan service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newDeriveCmd(), newMigrateCmd(), newExportCmd())
	return root
}

func newDeriveCmd() *cobra.Command {
	var (
		start, end, maxRange int
		missing, duplicates  string
		asJSON               bool
	)
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the identifiers a borrow declaration covers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := inventory.ValidateRange(start, end, maxRange); err != nil {
				return err
			}
			res := inventory.Derive(start, end, missing, duplicates)
			out := cmd.OutOrStdout()
			if asJSON {
				return jsoniter.NewEncoder(out).Encode(res)
			}
			fmt.Fprintf(out, "total: %d\n%s\n", res.Total, strings.Join(res.Books, ", "))
			return nil
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "first number of the range")
	cmd.Flags().IntVar(&end, "end", 0, "last number of the range")
	cmd.Flags().StringVar(&missing, "missing", "", "comma separated numbers absent from the range")
	cmd.Flags().StringVar(&duplicates, "duplicates", "", "comma separated extra identifiers")
	cmd.Flags().IntVar(&maxRange, "max-range", 10000, "largest accepted range, 0 for unlimited")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := migrations.Apply(cmd.Context(), db, logr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var (
		query dto.ExportQuery
		out   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the loan register to a CSV or PDF file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := service.ParseExportFormat(query.Format)
			if err != nil {
				return err
			}
			filter, err := service.ExportFilter(query)
			if err != nil {
				return err
			}

			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := service.NewExportService(repository.NewLoanRepository(db), nil, nil, logr)
			res, err := svc.Export(cmd.Context(), format, filter)
			if err != nil {
				return err
			}
			if out == "" {
				out = res.Filename
			}
			if err := os.WriteFile(out, res.Body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(res.Body))
			return nil
		},
	}
	cmd.Flags().StringVar(&query.Format, "format", "csv", "csv or pdf")
	cmd.Flags().StringVar(&query.Status, "status", "", "borrowed, partially_returned, returned or active")
	cmd.Flags().StringVar(&query.District, "district", "", "district filter")
	cmd.Flags().StringVar(&query.OrganizationType, "organization-type", "", "FOUNDATION or ASSOCIATION")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path, defaults to the generated file name")
	return cmd
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logr, nil
}

// executeContext runs the command tree with output captured.
func executeContext(ctx context.Context, args ...string) (string, error) {
	root := newRootCmd()
	var buf strings.Builder
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return buf.String(), err
}
