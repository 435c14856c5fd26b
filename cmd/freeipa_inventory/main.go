// Command freeipa_inventory is an Ansible dynamic inventory script that
// builds groups and hosts from FreeIPA host groups.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/l3o/terraform-provider-ldap3orm/internal/config"
	"github.com/l3o/terraform-provider-ldap3orm/internal/inventory"
	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
	"github.com/l3o/terraform-provider-ldap3orm/internal/logging"
)

var (
	Version = "dev"
	Commit  = "none"
)

var newClient = ldap.NewClient

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "freeipa_inventory: %v\n", err)
		os.Exit(1)
	}
}

func newApp(stdout io.Writer) *cli.App {
	var (
		list              bool
		host              string
		format            string
		configName        string
		logLevel          string
		vaultPasswordFile string
	)

	return &cli.App{
		Name:      "freeipa_inventory",
		Usage:     "Ansible dynamic inventory from FreeIPA host groups",
		Version:   fmt.Sprintf("%s (commit %s)", Version, Commit),
		Writer:    stdout,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "list",
				Usage:       "print all groups and hosts",
				Destination: &list,
			},
			&cli.StringFlag{
				Name:        "host",
				Usage:       "print the variables of `HOST`",
				Destination: &host,
			},
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Value:       "json",
				Usage:       "output format of --list [json|yaml]",
				Destination: &format,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Value:       "default",
				Usage:       "ldap3-orm configuration `NAME` or path",
				EnvVars:     []string{"LDAP3_ORM_CONFIG"},
				Destination: &configName,
			},
			&cli.StringFlag{
				Name:        "vault-password-file",
				Usage:       "password `FILE` for a vault encrypted configuration",
				EnvVars:     []string{"ANSIBLE_VAULT_PASSWORD_FILE"},
				Destination: &vaultPasswordFile,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Aliases:     []string{"l"},
				Usage:       "set log level [trace|debug|info|warn|error] (default: warn)",
				EnvVars:     []string{logging.LevelEnv},
				Destination: &logLevel,
			},
		},
		Before: func(c *cli.Context) error {
			if logLevel != "" {
				if err := os.Setenv(logging.LevelEnv, logLevel); err != nil {
					return err
				}
			}
			c.Context = logging.NewContext(c.Context, "freeipa_inventory")

			switch {
			case list == (host != ""):
				return errors.New("exactly one of --list or --host is required")
			case format != "json" && format != "yaml":
				return fmt.Errorf("unsupported format %q (expected json or yaml)", format)
			case host != "" && format != "json":
				return errors.New("--host only supports the json format")
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			decrypter := config.VaultDecrypter{}
			if vaultPasswordFile != "" {
				decrypter.Args = []string{"--vault-password-file", vaultPasswordFile}
			}

			cfg, err := config.Load(c.Context, configName, config.WithDecrypter(decrypter))
			if err != nil {
				return err
			}

			client, err := newClient(c.Context, cfg.ConnectionConfig())
			if err != nil {
				return err
			}
			if err := client.Connect(c.Context); err != nil {
				return err
			}
			defer client.Close()

			inv, err := inventory.NewBuilder(client, inventory.OptionsFromConfig(cfg)).Build(c.Context)
			if err != nil {
				return err
			}

			var out []byte
			switch {
			case host != "":
				out, err = inv.HostJSON(host)
			case format == "yaml":
				out, err = inv.YAML()
			default:
				out, err = inv.ListJSON()
			}
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(c.App.Writer, string(out))
			return err
		},
	}
}
