package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var (
		company string
		email   string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token in the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			if company == "" {
				company = s.profile.CompanyID
			}
			companyID, err := uuid.Parse(company)
			if err != nil {
				return fmt.Errorf("invalid company id %q", company)
			}
			if email == "" {
				return errors.New("--email is required")
			}

			fmt.Fprint(s.out, "Password: ")
			line, err := bufio.NewReader(s.in).ReadString('\n')
			password := strings.TrimRight(line, "\r\n")
			if password == "" {
				if err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
				return errors.New("empty password")
			}

			tokens, err := s.client.Login(cmd.Context(), companyID, email, password)
			if err != nil {
				return err
			}

			s.profile.Token = tokens.AccessToken
			s.profile.CompanyID = companyID.String()
			if err := s.profile.Save(profilePath); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "\nlogged in, token saved to %s\n", profilePath)
			return nil
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "Company id (defaults to the profile)")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	return cmd
}
