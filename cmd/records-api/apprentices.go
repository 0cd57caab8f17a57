package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/upb/ep-records/services/principal"
)

var apprenticeFlags struct {
	firstName    string
	lastName     string
	email        string
	documentType string
	document     string
	password     string
	stdin        bool
}

var apprenticesCmd = &cobra.Command{
	Use:   "apprentices",
	Short: "Manage apprentices",
}

var createApprenticeCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an active apprentice",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd, apprenticeFlags.password, apprenticeFlags.stdin)
		if err != nil {
			return err
		}

		return withPrincipals(cmd, func(ctx context.Context, svc *principal.Service) error {
			apprentice, err := svc.RegisterApprentice(ctx, principal.ApprenticeRegistration{
				FirstName:      apprenticeFlags.firstName,
				LastName:       apprenticeFlags.lastName,
				Email:          apprenticeFlags.email,
				DocumentType:   apprenticeFlags.documentType,
				DocumentNumber: apprenticeFlags.document,
				Password:       password,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Apprentice created")
			fmt.Fprintf(out, "ID:       %s\n", apprentice.ID)
			fmt.Fprintf(out, "Document: %s %s\n", apprentice.DocumentType, apprentice.DocumentNumber)
			return nil
		})
	},
}

func init() {
	createApprenticeCmd.Flags().StringVar(&apprenticeFlags.firstName, "first-name", "", "First name of the apprentice")
	createApprenticeCmd.Flags().StringVar(&apprenticeFlags.lastName, "last-name", "", "Last name of the apprentice")
	createApprenticeCmd.Flags().StringVar(&apprenticeFlags.email, "email", "", "Contact email of the apprentice")
	createApprenticeCmd.Flags().StringVar(&apprenticeFlags.documentType, "document-type", "CC", "Document type, e.g. CC or TI")
	createApprenticeCmd.Flags().StringVar(&apprenticeFlags.document, "document", "", "Document number used to log in")
	createApprenticeCmd.Flags().StringVar(&apprenticeFlags.password, "password", "", "Password for the apprentice (use --stdin to avoid shell history)")
	createApprenticeCmd.Flags().BoolVar(&apprenticeFlags.stdin, "stdin", false, "Read password from stdin instead of --password")

	apprenticesCmd.AddCommand(createApprenticeCmd)
}
