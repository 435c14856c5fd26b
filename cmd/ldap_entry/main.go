// Command ldap_entry is an Ansible binary module that reconciles one LDAP
// entry. Ansible runs it with the path of a JSON arguments file and reads
// the result from stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/l3o/terraform-provider-ldap3orm/internal/ansible"
	"github.com/l3o/terraform-provider-ldap3orm/internal/config"
	"github.com/l3o/terraform-provider-ldap3orm/internal/entry"
	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
	"github.com/l3o/terraform-provider-ldap3orm/internal/logging"
)

var (
	newClient                  = ldap.NewClient
	decrypter config.Decrypter = config.VaultDecrypter{}
)

func main() {
	ctx := logging.NewContext(context.Background(), "ldap_entry")
	os.Exit(run(ctx, os.Args[1:], os.Stdout))
}

// run executes one module invocation and returns the process exit code.
func run(ctx context.Context, argv []string, stdout io.Writer) int {
	if len(argv) < 1 {
		_ = ansible.Fail(stdout, "No argument file provided", nil)
		return 1
	}

	args, err := ansible.LoadArgs(argv[0])
	if err != nil {
		_ = ansible.Fail(stdout, err.Error(), nil)
		return 1
	}

	invocation := &ansible.Invocation{ModuleArgs: args.ModuleArgs()}

	resp, err := reconcile(ctx, args)
	if err != nil {
		tflog.Error(ctx, "ldap_entry failed", map[string]any{"error": err.Error()})
		_ = ansible.Fail(stdout, err.Error(), invocation)
		return 1
	}

	resp.Invocation = invocation
	if err := ansible.Exit(stdout, resp); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write module result: %v\n", err)
		return 1
	}
	return 0
}

func reconcile(ctx context.Context, args *ansible.Args) (*ansible.Response, error) {
	var params entry.Params
	if err := args.Decode(&params); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(ctx, params.Config, config.WithDecrypter(decrypter))
	if err != nil {
		return nil, err
	}

	desired, err := params.Desired(cfg)
	if err != nil {
		return nil, err
	}

	// The DN must resolve before any directory contact.
	if _, err := desired.TargetDN(); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, cfg.ConnectionConfig())
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	defer client.Close()

	result, err := entry.NewReconciler(client, entry.WithCheckMode(args.CheckMode)).Reconcile(ctx, desired)
	if err != nil {
		return nil, err
	}

	resp := &ansible.Response{Changed: result.Changed, Actions: result.Actions}
	if args.Diff && result.Changed {
		prepared, err := result.Plan.Redacted(ansible.NoLogValue).LDIF()
		if err != nil {
			return nil, fmt.Errorf("failed to render diff: %w", err)
		}
		resp.Diff = &ansible.Diff{Prepared: prepared}
	}

	return resp, nil
}
