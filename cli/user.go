package cli

import (
	"fmt"

	"telemetry-server/auth"
	"telemetry-server/entities"
	"telemetry-server/usecases"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var (
	newUserEmail    string
	newUserPassword string
	newUserRole     string
	newUserFirst    string
	newUserLast     string
)

var userCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Create a user account",
	Example: `  telemetry-server user create --email admin@example.com --password 's3cret-pass' --role admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, database, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		if err := migrate(database, log); err != nil {
			return err
		}

		uc := usecases.NewUserUseCase(database, auth.NewJWTService(cfg.JWTSecret, cfg.JWTTTL), log)
		user, err := uc.Create(cmd.Context(), usecases.CreateUserRequest{
			Email:     newUserEmail,
			Password:  newUserPassword,
			Role:      newUserRole,
			FirstName: newUserFirst,
			LastName:  newUserLast,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", user.Role, user.Email, user.ID)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&newUserEmail, "email", "", "email address (required)")
	userCreateCmd.Flags().StringVar(&newUserPassword, "password", "", "password, at least 8 characters (required)")
	userCreateCmd.Flags().StringVar(&newUserRole, "role", entities.RoleCustomer, "customer, vendor or admin")
	userCreateCmd.Flags().StringVar(&newUserFirst, "first-name", "", "first name")
	userCreateCmd.Flags().StringVar(&newUserLast, "last-name", "", "last name")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userCreateCmd)
}
