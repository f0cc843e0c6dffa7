package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"hotelbooking/internal/auth"
	"hotelbooking/internal/booking"
	"hotelbooking/internal/database"
	"hotelbooking/internal/export"
	"hotelbooking/internal/service"

	"github.com/spf13/cobra"
)

func seedCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create or update rooms from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open rooms file: %w", err)
			}
			defer f.Close()

			rooms, err := service.ParseRoomsYAML(f)
			if err != nil {
				return err
			}

			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			created, updated, err := service.NewRoomService(e.db, nil, e.logger).SeedRooms(cmd.Context(), rooms)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rooms seeded: %d created, %d updated\n", created, updated)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "configs/rooms.yaml", "rooms YAML file")
	return cmd
}

func createAdminCmd(opts *options) *cobra.Command {
	var email, name, password, phone string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account or promote an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("HOTEL_ADMIN_PASSWORD")
			}
			if password == "" {
				return fmt.Errorf("--password or HOTEL_ADMIN_PASSWORD is required")
			}

			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			users := service.NewUserService(
				e.db,
				auth.NewPasswordHasher(e.cfg.Auth.BcryptCost),
				auth.NewTokenManager(e.cfg.Auth.JWTSecret, e.cfg.Auth.Issuer, e.cfg.Auth.TokenTTL),
				e.logger,
			)
			user, created, err := users.EnsureAdmin(cmd.Context(), service.RegisterRequest{
				Email:    email,
				Name:     name,
				Phone:    phone,
				Password: password,
			})
			if err != nil {
				return err
			}

			verb := "promoted"
			if created {
				verb = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin %s %s (id %d)\n", user.Email, verb, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&phone, "phone", "", "contact phone")
	cmd.Flags().StringVar(&password, "password", "", "password (or HOTEL_ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func backupCmd(opts *options) *cobra.Command {
	var cleanup bool

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of the database to the backup directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			backups := database.NewBackupService(e.db, e.cfg.Backup, e.logger)
			path, err := backups.PerformBackup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)

			if cleanup {
				removed := backups.CleanupOldBackups()
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d old backups\n", removed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "remove backups older than backup.retention_days")
	return cmd
}

func exportCmd(opts *options) *cobra.Command {
	var from, to, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export bookings to an xlsx report",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := optionalDate(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			toDate, err := optionalDate(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			bookings := service.NewBookingService(e.db, nil, nil, e.cfg.Booking, e.logger)
			list, err := bookings.ExportBookings(cmd.Context(), fromDate, toDate)
			if err != nil {
				return err
			}

			dir := out
			if dir == "" {
				dir = e.cfg.Exports.Path
			}
			path, err := export.SaveFile(dir, export.Report{From: fromDate, To: toDate, Bookings: list})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d bookings to %s\n", len(list), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&out, "out", "", "output directory (default exports.path)")
	return cmd
}

func syncCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Inspect the Google Sheets sync queue",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "failed",
		Short: "List sync tasks that ran out of retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			tasks, err := e.db.GetFailedSyncTasks(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(w, "No failed sync tasks.")
				return nil
			}
			fmt.Fprintf(w, "%-6s  %-14s  %-8s  %-7s  %s\n", "ID", "Type", "Booking", "Retries", "Error")
			for _, t := range tasks {
				lastErr := ""
				if t.LastError != nil {
					lastErr = strings.TrimSpace(*t.LastError)
				}
				fmt.Fprintf(w, "%-6d  %-14s  %-8d  %-7d  %s\n", t.ID, t.TaskType, t.BookingID, t.RetryCount, lastErr)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "requeue",
		Short: "Move failed sync tasks back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := e.db.RequeueFailedSyncTasks(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d tasks\n", n)
			return nil
		},
	})
	return cmd
}

func optionalDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return booking.ParseDate(strings.TrimSpace(raw))
}
