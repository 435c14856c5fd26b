package provider

import (
	"context"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/l3o/terraform-provider-ldap3orm/internal/logging"
)

// initializeLogging sets up the provider subsystem and the subsystems of the
// directory, entry and inventory packages. It is called at the start of every
// resource, data source and function operation.
func initializeLogging(ctx context.Context) context.Context {
	// Pattern: TF_LOG_PROVIDER_LDAP3ORM_<SUBSYSTEM>
	ctx = tflog.NewSubsystem(ctx, "provider",
		tflog.WithLevelFromEnv("TF_LOG_PROVIDER_LDAP3ORM_PROVIDER"))

	for _, subsystem := range logging.Subsystems {
		ctx = tflog.NewSubsystem(ctx, subsystem,
			tflog.WithLevelFromEnv("TF_LOG_PROVIDER_LDAP3ORM_"+strings.ToUpper(subsystem)))
	}

	return ctx
}
