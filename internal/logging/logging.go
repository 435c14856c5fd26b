// Package logging sets up tflog for the standalone binaries. Inside Terraform
// the plugin SDK installs the root logger; the Ansible module and the
// inventory script install their own, writing JSON lines to stderr.
package logging

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/hashicorp/terraform-plugin-log/tfsdklog"
)

// LevelEnv selects the log level of the standalone binaries.
const LevelEnv = "LDAP3_ORM_LOG"

// Subsystems used by the internal packages.
var Subsystems = []string{"ldap", "entry", "inventory"}

// Level returns the configured level, WARN unless LDAP3_ORM_LOG names another.
func Level() hclog.Level {
	level := hclog.LevelFromString(strings.TrimSpace(os.Getenv(LevelEnv)))
	if level == hclog.NoLevel {
		return hclog.Warn
	}
	return level
}

// NewContext returns a context carrying a root logger named name, the
// subsystem loggers of the internal packages, and an invocation_id field.
func NewContext(ctx context.Context, name string) context.Context {
	level := Level()

	ctx = tfsdklog.NewRootProviderLogger(ctx,
		tfsdklog.WithLogName(name),
		tfsdklog.WithLevel(level),
		tfsdklog.WithStderrFromInit(),
		tfsdklog.WithoutLocation(),
	)
	ctx = tflog.SetField(ctx, "invocation_id", uuid.NewString())

	return WithSubsystems(ctx, level)
}

// WithSubsystems registers the subsystem loggers on a context that already
// carries a root logger.
func WithSubsystems(ctx context.Context, level hclog.Level) context.Context {
	for _, subsystem := range Subsystems {
		ctx = tflog.NewSubsystem(ctx, subsystem, tflog.WithLevel(level))
	}
	return ctx
}
