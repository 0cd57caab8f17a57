package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/services/principal"
)

var instructorFlags struct {
	name     string
	email    string
	document string
	role     string
	password string
	stdin    bool
}

var instructorsCmd = &cobra.Command{
	Use:   "instructors",
	Short: "Manage instructors",
}

var createInstructorCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an active instructor",
	Long: `Creates an instructor who logs in with a document number. Use
--role "INSTRUCTOR OWNER" for instructors who supervise apprentices.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd, instructorFlags.password, instructorFlags.stdin)
		if err != nil {
			return err
		}

		return withPrincipals(cmd, func(ctx context.Context, svc *principal.Service) error {
			instructor, err := svc.RegisterInstructor(ctx, principal.InstructorRegistration{
				Name:           instructorFlags.name,
				Email:          instructorFlags.email,
				DocumentNumber: instructorFlags.document,
				Role:           models.Role(instructorFlags.role),
				Password:       password,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Instructor created")
			fmt.Fprintf(out, "ID:       %s\n", instructor.ID)
			fmt.Fprintf(out, "Document: %s\n", instructor.DocumentNumber)
			fmt.Fprintf(out, "Role:     %s\n", instructor.Role)
			return nil
		})
	},
}

func init() {
	createInstructorCmd.Flags().StringVar(&instructorFlags.name, "name", "", "Full name of the instructor")
	createInstructorCmd.Flags().StringVar(&instructorFlags.email, "email", "", "Contact email of the instructor")
	createInstructorCmd.Flags().StringVar(&instructorFlags.document, "document", "", "Document number used to log in")
	createInstructorCmd.Flags().StringVar(&instructorFlags.role, "role", string(models.RoleInstructor), "Instructor role to assign")
	createInstructorCmd.Flags().StringVar(&instructorFlags.password, "password", "", "Password for the instructor (use --stdin to avoid shell history)")
	createInstructorCmd.Flags().BoolVar(&instructorFlags.stdin, "stdin", false, "Read password from stdin instead of --password")

	instructorsCmd.AddCommand(createInstructorCmd)
}
