package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/terraform-plugin-testing/terraform"

	"github.com/l3o/terraform-provider-ldap3orm/internal/entry"
	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
)

// Test environment configuration constants.
const (
	// Environment variables for test configuration.
	EnvTestURL          = "LDAP3_ORM_TEST_URL"
	EnvTestBindDN       = "LDAP3_ORM_TEST_BIND_DN"
	EnvTestBindPassword = "LDAP3_ORM_TEST_BIND_PASSWORD"
	EnvTestBaseDN       = "LDAP3_ORM_TEST_BASE_DN"
	EnvTestContainer    = "LDAP3_ORM_TEST_CONTAINER"

	// Default values for testing.
	DefaultTestBaseDN    = "cn=accounts,dc=example,dc=com"
	DefaultTestContainer = "cn=hostgroups"

	// Test object name prefix to avoid conflicts.
	TestEntryPrefix = "tf-test-"
)

// TestConfig holds common test configuration.
type TestConfig struct {
	URL          string
	BindDN       string
	BindPassword string
	BaseDN       string
	Container    string
}

// GetTestConfig returns the test configuration from environment variables.
func GetTestConfig() *TestConfig {
	return &TestConfig{
		URL:          os.Getenv(EnvTestURL),
		BindDN:       os.Getenv(EnvTestBindDN),
		BindPassword: os.Getenv(EnvTestBindPassword),
		BaseDN:       getEnvWithDefault(EnvTestBaseDN, DefaultTestBaseDN),
		Container:    getEnvWithDefault(EnvTestContainer, DefaultTestContainer),
	}
}

// ContainerDN returns the DN test entries are created below.
func (c *TestConfig) ContainerDN() string {
	return c.Container + "," + c.BaseDN
}

// IsAccTest returns true if acceptance tests should run.
func IsAccTest() bool {
	return os.Getenv("TF_ACC") != ""
}

// SkipIfNotAccTest skips the test if TF_ACC is not set.
func SkipIfNotAccTest(t *testing.T) {
	if !IsAccTest() {
		t.Skip("Skipping acceptance test - set TF_ACC=1 to run")
	}
}

// testAccPreCheckWithConfig skips the test unless a directory is configured.
func testAccPreCheckWithConfig(t *testing.T) *TestConfig {
	SkipIfNotAccTest(t)

	config := GetTestConfig()

	if config.URL == "" {
		t.Skipf("Skipping test: %s must be set to a real directory", EnvTestURL)
	}

	if config.BindDN == "" || config.BindPassword == "" {
		t.Skipf("Skipping test: %s and %s must be set", EnvTestBindDN, EnvTestBindPassword)
	}

	return config
}

// TestProviderConfig generates provider configuration for tests.
func TestProviderConfig() string {
	config := GetTestConfig()

	var providerConfig strings.Builder
	providerConfig.WriteString("provider \"ldap3orm\" {\n")
	fmt.Fprintf(&providerConfig, "  url           = %q\n", config.URL)
	fmt.Fprintf(&providerConfig, "  base_dn       = %q\n", config.BaseDN)
	fmt.Fprintf(&providerConfig, "  bind_dn       = %q\n", config.BindDN)
	fmt.Fprintf(&providerConfig, "  bind_password = %q\n", config.BindPassword)
	providerConfig.WriteString("}\n")

	return providerConfig.String()
}

// GenerateTestName generates a unique test name with timestamp.
func GenerateTestName(prefix string) string {
	timestamp := time.Now().Format("20060102-150405")
	shortUUID := uuid.New().String()[:8]
	return fmt.Sprintf("%s%s-%s", prefix, timestamp, shortUUID)
}

// testAccClient connects to the test directory.
func testAccClient(ctx context.Context, config *TestConfig) (ldap.Client, error) {
	client, err := ldap.NewClient(ctx, &ldap.ConnectionConfig{
		URL:        config.URL,
		BaseDN:     config.BaseDN,
		Timeout:    30 * time.Second,
		AuthMethod: ldap.AuthMethodSimpleBind,
		Username:   config.BindDN,
		Password:   config.BindPassword,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// testAccCheckEntryExists verifies the entry of a resource is in the
// directory and carries the given attribute values.
func testAccCheckEntryExists(resourceName string, want map[string][]string) func(*terraform.State) error {
	return func(s *terraform.State) error {
		rs, ok := s.RootModule().Resources[resourceName]
		if !ok {
			return fmt.Errorf("resource not found: %s", resourceName)
		}

		ctx := context.Background()
		client, err := testAccClient(ctx, GetTestConfig())
		if err != nil {
			return err
		}
		defer client.Close()

		dn := rs.Primary.Attributes["resolved_dn"]
		actual, err := entry.NewReconciler(client).Lookup(ctx, dn)
		if err != nil {
			return err
		}
		if actual == nil {
			return fmt.Errorf("entry %s does not exist", dn)
		}

		for name, values := range want {
			if got := ldap.AttributeValues(actual, name); !ldap.ValuesEqual(got, values) {
				return fmt.Errorf("entry %s: attribute %s is %q, want %q", dn, name, got, values)
			}
		}
		return nil
	}
}

// testAccCheckEntryDestroy verifies every entry resource has been removed.
func testAccCheckEntryDestroy(s *terraform.State) error {
	ctx := context.Background()
	client, err := testAccClient(ctx, GetTestConfig())
	if err != nil {
		return err
	}
	defer client.Close()

	for _, rs := range s.RootModule().Resources {
		if rs.Type != "ldap3orm_entry" {
			continue
		}

		dn := rs.Primary.Attributes["resolved_dn"]
		actual, err := entry.NewReconciler(client).Lookup(ctx, dn)
		if err != nil {
			return err
		}
		if actual != nil {
			return fmt.Errorf("entry %s still exists", dn)
		}
	}
	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
