package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"schoollend/internal/domain"
	"schoollend/internal/export"
	"schoollend/internal/models"

	"github.com/spf13/cobra"
)

func newExportCmd(cfgFile *string) *cobra.Command {
	var (
		out    string
		query  string
		status string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the admin reservation list to an Excel workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closer, err := loadConfigAndLogger(*cfgFile, "export")
			if err != nil {
				return err
			}
			if closer != nil {
				defer (func() { _ = closer.Close() })()
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := newApplication(ctx, cfg, &logger)
			if err != nil {
				return err
			}
			defer app.close()

			reservations, err := app.reservationSvc.AdminList(ctx, domain.ReservationQuery{Text: query, Status: status})
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path, err = export.SaveReservations(cfg.Exports.Path, reservations, time.Now())
			} else {
				err = writeExportFile(path, reservations)
			}
			if err != nil {
				return fmt.Errorf("export reservations: %w", err)
			}

			logger.Info().Str("path", path).Int("reservations", len(reservations)).Msg("export written")
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <exports.path>/reserveringen_<timestamp>.xlsx)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by device, applicant or reservation id")
	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status (pending, ready, active, returned, overdue, cancelled)")
	return cmd
}

func writeExportFile(path string, reservations []models.Reservation) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteReservations(file, reservations); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
