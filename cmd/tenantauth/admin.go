package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/MrEthical07/tenantAuth/password"
	"github.com/MrEthical07/tenantAuth/store/sqlstore"
	"github.com/spf13/cobra"
)

const cliActor = "tenantauth-cli"

func newHashPasswordCmd(a *app) *cobra.Command {
	var raw string
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print the bcrypt hash of a password read from --password or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("password") {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				raw = line
			}
			if raw == "" {
				return errors.New("password must not be empty")
			}
			hasher, err := password.NewBcrypt(password.Config{Cost: a.cfg.Auth.Password.Cost})
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(raw)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, hash)
			return err
		},
	}
	cmd.Flags().StringVar(&raw, "password", "", "password to hash; read from stdin when omitted")
	return cmd
}

func newBootstrapSuperAdminCmd(a *app) *cobra.Command {
	var (
		person      tenantAuth.PersonDetails
		rawPassword string
	)
	cmd := &cobra.Command{
		Use:   "bootstrap-superadmin",
		Short: "Create a tenant-less SuperAdmin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(ctx context.Context, engine *tenantAuth.Engine) error {
				acct, err := engine.ProvisionSuperAdmin(ctx, person, rawPassword, cliActor)
				if err != nil {
					return err
				}
				a.logger.Info("superadmin provisioned", "account_id", acct.AccountID, "username", acct.Username)
				return writeJSON(a.out, map[string]string{
					"accountId": acct.AccountID,
					"username":  acct.Username,
					"password":  acct.Password,
				})
			})
		},
	}
	cmd.Flags().StringVar(&person.FirstName, "first", "", "first name")
	cmd.Flags().StringVar(&person.LastName, "last", "", "last name")
	cmd.Flags().StringVar(&person.Email, "email", "", "email address")
	cmd.Flags().StringVar(&person.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&rawPassword, "password", "", "initial password; generated when omitted")
	_ = cmd.MarkFlagRequired("first")
	_ = cmd.MarkFlagRequired("last")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func newCreateRoleCmd(a *app) *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "create-role",
		Short: "Create a role template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(ctx context.Context, engine *tenantAuth.Engine) error {
				role, err := engine.CreateRole(ctx, name, description, cliActor)
				if err != nil {
					return err
				}
				return writeJSON(a.out, map[string]string{
					"roleId": role.ID,
					"name":   role.Name,
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "role name")
	cmd.Flags().StringVar(&description, "description", "", "role description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// withEngine opens and migrates the store, then runs fn with an offline
// engine.
func (a *app) withEngine(ctx context.Context, fn func(context.Context, *tenantAuth.Engine) error) error {
	return a.withStore(ctx, func(ctx context.Context, store *sqlstore.Store) error {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		engine, err := a.offlineEngine(store)
		if err != nil {
			return err
		}
		defer engine.Close()
		return fn(ctx, engine)
	})
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
