package main

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xcellar/xcellar/internal/async"
	"github.com/xcellar/xcellar/internal/bootstrap"
	"github.com/xcellar/xcellar/internal/config"
	"github.com/xcellar/xcellar/internal/job"
	"github.com/xcellar/xcellar/internal/migrations"
	"github.com/xcellar/xcellar/internal/notifier"
	"github.com/xcellar/xcellar/internal/repository"
	"github.com/xcellar/xcellar/internal/repository/sqlite"
	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/hash"
)

func init() {
	// Migrate
	var migrateStatus bool
	var migrateRollback bool
	var migrateCmd = &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Database migration management",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := bootstrap.OpenSQLite(cfg.DB.Path)
			if err != nil {
				return err
			}
			fmt.Printf("Using DB path: %s\n", cfg.DB.Path)
			defer db.Close()

			if migrateStatus {
				return migrations.Status(db)
			}
			if migrateRollback {
				return migrations.Down(db)
			}

			action := "up"
			if len(args) > 0 {
				action = args[0]
			}

			switch action {
			case "up":
				return migrations.Up(db)
			case "down":
				return migrations.Down(db)
			case "status":
				return migrations.Status(db)
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}
		},
	}
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show migration status")
	migrateCmd.Flags().BoolVar(&migrateRollback, "rollback", false, "Rollback the last migration")
	rootCmd.AddCommand(migrateCmd)

	// Backup
	var backupOutput string
	var backupCompress bool
	var backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Backup database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			target := backupOutput
			if target == "" {
				backupDir := "data/backups"
				if err := os.MkdirAll(backupDir, 0755); err != nil {
					return fmt.Errorf("create backup dir: %w", err)
				}
				ext := ".db"
				if backupCompress {
					ext += ".gz"
				}
				filename := fmt.Sprintf("xcellar_%s%s", time.Now().Format("20060102_150405"), ext)
				target = filepath.Join(backupDir, filename)
			}

			db, err := bootstrap.OpenSQLite(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			tempFile := target
			if backupCompress {
				if strings.HasSuffix(target, ".gz") {
					tempFile = strings.TrimSuffix(target, ".gz")
				} else {
					tempFile = target + ".tmp"
				}
			}

			if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", tempFile)); err != nil {
				return fmt.Errorf("sqlite vacuum into: %w", err)
			}

			if backupCompress {
				if err := compressFile(tempFile, target); err != nil {
					os.Remove(tempFile)
					return err
				}
				os.Remove(tempFile)
			}

			fmt.Printf("Backup created at %s\n", target)
			return nil
		},
	}
	backupCmd.Flags().StringVar(&backupOutput, "output", "", "Output file path")
	backupCmd.Flags().BoolVar(&backupCompress, "compress", false, "Compress output with gzip")
	rootCmd.AddCommand(backupCmd)

	// Restore
	var restoreCmd = &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Restore database from backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			backupPath := args[0]
			if _, err := os.Stat(backupPath); err != nil {
				return fmt.Errorf("backup file not found: %w", err)
			}

			dbPath := cfg.DB.Path
			// Auto-backup before restore
			if _, err := os.Stat(dbPath); err == nil {
				bakPath := dbPath + ".pre_restore_" + time.Now().Format("20060102_150405")
				if err := copyFile(dbPath, bakPath); err != nil {
					return fmt.Errorf("failed to backup current db: %w", err)
				}
				fmt.Printf("Current database backed up to %s\n", bakPath)
			}

			isGzip := strings.HasSuffix(backupPath, ".gz")
			sourceFile := backupPath

			if isGzip {
				tempSource := dbPath + ".restoring"
				if err := decompressFile(backupPath, tempSource); err != nil {
					return fmt.Errorf("decompress failed: %w", err)
				}
				sourceFile = tempSource
				defer os.Remove(tempSource)
			}

			if err := copyFile(sourceFile, dbPath); err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			fmt.Println("Database restored successfully.")
			return nil
		},
	}
	rootCmd.AddCommand(restoreCmd)

	// User
	var userCmd = &cobra.Command{
		Use:   "user",
		Short: "User management",
	}

	var createUserEmail, createUserPassword, createUserPhone, createUserType string
	var createUserCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if createUserEmail == "" || createUserPassword == "" {
				return fmt.Errorf("email and password are required")
			}
			store, cfg, err := getStore()
			if err != nil {
				return err
			}
			return runUserCreate(store, cfg, createUserEmail, createUserPassword, createUserPhone, createUserType)
		},
	}
	createUserCmd.Flags().StringVar(&createUserEmail, "email", "", "User email")
	createUserCmd.Flags().StringVar(&createUserPassword, "password", "", "User password")
	createUserCmd.Flags().StringVar(&createUserPhone, "phone", "", "Phone number")
	createUserCmd.Flags().StringVar(&createUserType, "type", "user", "User type (user or courier)")
	userCmd.AddCommand(createUserCmd)

	var resetUserEmail, resetUserPassword string
	var resetPasswordCmd = &cobra.Command{
		Use:   "reset-password",
		Short: "Reset user password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if resetUserEmail == "" || resetUserPassword == "" {
				return fmt.Errorf("email and password are required")
			}
			store, cfg, err := getStore()
			if err != nil {
				return err
			}
			return runUserResetPassword(store, cfg, resetUserEmail, resetUserPassword)
		},
	}
	resetPasswordCmd.Flags().StringVar(&resetUserEmail, "email", "", "User email")
	resetPasswordCmd.Flags().StringVar(&resetUserPassword, "password", "", "New password")
	userCmd.AddCommand(resetPasswordCmd)

	userCmd.AddCommand(&cobra.Command{
		Use:   "deactivate <email>",
		Short: "Deactivate a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := getStore()
			if err != nil {
				return err
			}
			return runUserStatus(store, args[0], false)
		},
	})

	userCmd.AddCommand(&cobra.Command{
		Use:   "activate <email>",
		Short: "Activate a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := getStore()
			if err != nil {
				return err
			}
			return runUserStatus(store, args[0], true)
		},
	})

	userCmd.AddCommand(&cobra.Command{
		Use:   "balance <email>",
		Short: "Show a user's wallet balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := getStore()
			if err != nil {
				return err
			}
			return runUserBalance(store, args[0])
		},
	})
	rootCmd.AddCommand(userCmd)

	// Job
	var jobCmd = &cobra.Command{
		Use:   "job",
		Short: "Job management",
	}
	jobCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available jobs",
		Run: func(cmd *cobra.Command, args []string) {
			jobs := getJobs(nil) // store not needed for list keys
			fmt.Println("Available jobs:")
			for name := range jobs {
				fmt.Println("- " + name)
			}
		},
	})
	jobCmd.AddCommand(&cobra.Command{
		Use:   "run <name>",
		Short: "Run a job manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := getStore()
			if err != nil {
				return err
			}
			jobs := getJobs(store)
			name := args[0]
			j, ok := jobs[name]
			if !ok {
				return fmt.Errorf("unknown job %q", name)
			}
			fmt.Printf("Running job %s...\n", name)
			if err := j.Run(context.Background()); err != nil {
				return fmt.Errorf("job run failed: %w", err)
			}
			fmt.Println("Job completed successfully.")
			return nil
		},
	})
	rootCmd.AddCommand(jobCmd)

	// Version
	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Xcellar %s\n", Version)
			fmt.Printf("Commit: %s\n", Commit)
			fmt.Printf("Build Time: %s\n", BuildTime)
		},
	}
	rootCmd.AddCommand(versionCmd)
}

// Helper functions

func getStore() (*sqlite.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := bootstrap.OpenSQLite(cfg.DB.Path)
	if err != nil {
		return nil, nil, err
	}
	return sqlite.NewStore(db), cfg, nil
}

func runUserCreate(store *sqlite.Store, cfg *config.Config, email, password, phone, userType string) error {
	userType = strings.ToUpper(strings.TrimSpace(userType))
	if userType != repository.UserTypeCustomer && userType != repository.UserTypeCourier {
		return fmt.Errorf("unknown user type %q", userType)
	}

	hasher, err := hash.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	hashed, err := hasher.Hash(password)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	user := &repository.User{
		Email:       strings.ToLower(strings.TrimSpace(email)),
		Password:    hashed,
		PhoneNumber: phone,
		UserType:    userType,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := store.Users().Create(context.Background(), user)
	if err != nil {
		return fmt.Errorf("create user failed: %w", err)
	}
	fmt.Printf("User %s (%s) created with id %d.\n", created.Email, created.UserType, created.ID)
	return nil
}

func runUserResetPassword(store *sqlite.Store, cfg *config.Config, email, password string) error {
	ctx := context.Background()
	user, err := store.Users().FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user not found: %w", err)
	}

	hasher, err := hash.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	hashed, err := hasher.Hash(password)
	if err != nil {
		return err
	}

	user.Password = hashed
	user.UpdatedAt = time.Now().Unix()

	if err := store.Users().Save(ctx, user); err != nil {
		return fmt.Errorf("save user failed: %w", err)
	}
	fmt.Printf("Password reset for %s.\n", email)
	return nil
}

func runUserStatus(store *sqlite.Store, email string, active bool) error {
	ctx := context.Background()
	user, err := store.Users().FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user failed: %w", err)
	}

	user.IsActive = active
	user.UpdatedAt = time.Now().Unix()

	if err := store.Users().Save(ctx, user); err != nil {
		return fmt.Errorf("update user failed: %w", err)
	}
	action := "activated"
	if !active {
		action = "deactivated"
	}
	fmt.Printf("User %s %s.\n", email, action)
	return nil
}

func runUserBalance(store *sqlite.Store, email string) error {
	ctx := context.Background()
	user, err := store.Users().FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user failed: %w", err)
	}
	balanceKobo, err := store.Users().Balance(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("read balance failed: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tEmail\tType\tBalance (NGN)")
	fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\n", user.ID, user.Email, user.UserType, float64(balanceKobo)/100)
	w.Flush()
	return nil
}

func getJobs(store *sqlite.Store) map[string]job.Runnable {
	notificationQueue := async.NewNotificationQueue()

	// Store might be nil if just listing
	var orderSvc service.OrderService
	var carts repository.CartRepository
	var logins repository.LoginLogRepository

	if store != nil {
		orderSvc = service.NewOrderService(store.Orders(), store.Tracking(), store.Users(), store.Notifications(), async.NewQueueNotifier(notificationQueue))
		carts = store.Carts()
		logins = store.LoginLogs()
	}

	notifierSvc := notifier.NewLoggerService(nil)

	return map[string]job.Runnable{
		"order.offers":     job.NewOfferSweeper(orderSvc, nil),
		"notify.dispatch":  job.NewNotificationDispatch(notificationQueue, notifierSvc, nil),
		"cart.cleanup":     job.NewStaleCartCleanup(carts, nil),
		"loginlog.cleanup": job.NewLoginLogCleanup(logins, nil),
	}
}

// File utils
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return nil
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	defer gw.Close()

	if _, err := io.Copy(gw, in); err != nil {
		return err
	}
	return nil
}

func decompressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	gr, err := gzip.NewReader(in)
	if err != nil {
		return err
	}
	defer gr.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, gr); err != nil {
		return err
	}
	return nil
}
