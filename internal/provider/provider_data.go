package provider

import (
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/diag"

	"github.com/l3o/terraform-provider-ldap3orm/internal/config"
	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
)

// ProviderData is what Configure hands to resources and data sources: the one
// directory connection of the provider and the configuration it was opened
// from.
type ProviderData struct {
	Client ldap.Client    // Connected directory client
	Config *config.Config // Resolved ldap3-orm configuration
}

// providerDataFrom unwraps the provider data of a Configure request. It
// returns nil while the provider is not configured yet, and adds an error
// diagnostic if the data has an unexpected type.
func providerDataFrom(data any, kind string, diags *diag.Diagnostics) *ProviderData {
	if data == nil {
		return nil
	}

	providerData, ok := data.(*ProviderData)
	if !ok || providerData == nil {
		diags.AddError(
			fmt.Sprintf("Unexpected %s Configure Type", kind),
			fmt.Sprintf("Expected *provider.ProviderData, got: %T. Please report this issue to the provider developers.", data),
		)
		return nil
	}

	return providerData
}
