// Package ldaptest provides test doubles for ldap.Client.
package ldaptest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/l3o/terraform-provider-ldap3orm/internal/ldap"
)

// MockClient implements the ldap.Client interface with testify expectations.
type MockClient struct {
	mock.Mock
}

var _ ldap.Client = (*MockClient)(nil)

func (m *MockClient) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockClient) Search(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	result, ok := args.Get(0).(*ldap.SearchResult)
	if !ok {
		return nil, args.Error(1)
	}
	return result, args.Error(1)
}

func (m *MockClient) Add(ctx context.Context, req *ldap.AddRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockClient) Modify(ctx context.Context, req *ldap.ModifyRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockClient) Delete(ctx context.Context, dn string) error {
	args := m.Called(ctx, dn)
	return args.Error(0)
}

func (m *MockClient) WhoAmI(ctx context.Context) (*ldap.WhoAmIResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ldap.WhoAmIResult), args.Error(1)
}

// BaseSearch matches a base-scope search of dn.
func BaseSearch(dn string) any {
	return mock.MatchedBy(func(req *ldap.SearchRequest) bool {
		return req.Scope == ldap.ScopeBaseObject && ldap.EqualDN(req.BaseDN, dn)
	})
}
