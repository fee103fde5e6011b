package cmd

import (
	"github.com/docflow/apiserver/internal/db"
	"github.com/docflow/apiserver/internal/services"
	"github.com/docflow/apiserver/internal/store"
	"github.com/docflow/apiserver/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seedAdminPassword   string
	seedManagerPassword string
)

// seedCmd provisions the two default accounts. Existing accounts are left as they are.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default admin and manager accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		users := services.NewUserService(store.NewUserRepository(conn))
		accounts := []struct {
			username string
			password string
			role     types.Role
		}{
			{"admin", seedAdminPassword, types.RoleAdministrator},
			{"manager", seedManagerPassword, types.RoleManager},
		}
		for _, account := range accounts {
			user, created, err := users.Provision(cmd.Context(), account.username, account.password, account.role)
			if err != nil {
				logger.Error("seed failed", zap.String("username", account.username), zap.Error(err))
				return err
			}
			logger.Info("account ready",
				zap.String("username", user.Username),
				zap.String("role", string(user.Role)),
				zap.Bool("created", created),
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "admin123", "password for the admin account")
	seedCmd.Flags().StringVar(&seedManagerPassword, "manager-password", "manager123", "password for the manager account")
}
