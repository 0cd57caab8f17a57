package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/services/principal"
)

var userFlags struct {
	name     string
	email    string
	role     string
	password string
	stdin    bool
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage staff users",
}

var createUserCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an active staff user",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd, userFlags.password, userFlags.stdin)
		if err != nil {
			return err
		}

		return withPrincipals(cmd, func(ctx context.Context, svc *principal.Service) error {
			user, err := svc.RegisterStaffUser(ctx, principal.StaffRegistration{
				Name:     userFlags.name,
				Email:    userFlags.email,
				Role:     models.Role(userFlags.role),
				Password: password,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Staff user created")
			fmt.Fprintf(out, "ID:    %s\n", user.ID)
			fmt.Fprintf(out, "Email: %s\n", user.Email)
			fmt.Fprintf(out, "Role:  %s\n", user.Role)
			return nil
		})
	},
}

func init() {
	createUserCmd.Flags().StringVar(&userFlags.name, "name", "", "Display name of the user")
	createUserCmd.Flags().StringVar(&userFlags.email, "email", "", "Login email of the user")
	createUserCmd.Flags().StringVar(&userFlags.role, "role", string(models.RoleStaffVirtual), "Staff role to assign")
	createUserCmd.Flags().StringVar(&userFlags.password, "password", "", "Password for the user (use --stdin to avoid shell history)")
	createUserCmd.Flags().BoolVar(&userFlags.stdin, "stdin", false, "Read password from stdin instead of --password")

	usersCmd.AddCommand(createUserCmd)
}

// withPrincipals opens the databases for the duration of fn.
func withPrincipals(cmd *cobra.Command, fn func(ctx context.Context, svc *principal.Service) error) error {
	deps, err := openDependencies(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	return fn(cmd.Context(), deps.Principals)
}

// readPassword returns flag, or the first line of the command's input when
// stdin is set.
func readPassword(cmd *cobra.Command, flag string, stdin bool) (string, error) {
	if !stdin {
		return flag, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
