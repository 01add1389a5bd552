// Package mocks provides mock implementations for testing the Savitara auth system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockUsers := mocks.NewMockUserRepository(ctrl)
//	mockUsers.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(user, nil)
package mocks

// Generate mock for IdentityProvider interface from internal/ports package.
// This creates MockIdentityProvider with methods for all IdentityProvider interface methods:
// VerifyIDToken, Begin, Exchange
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=identity_provider_mock.go github.com/savitara/savitara-api/internal/ports IdentityProvider

// Generate mock for UserRepository interface from internal/ports package.
// This creates MockUserRepository with methods for all UserRepository interface methods:
// Create, GetByID, GetByEmail, RecordGoogleLogin, TouchLastLogin, HasProfile
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=user_repository_mock.go github.com/savitara/savitara-api/internal/ports UserRepository

// Generate mock for TokenIssuer interface from internal/ports package.
// This creates MockTokenIssuer with methods for all TokenIssuer interface methods:
// IssueAccess, IssueRefresh, VerifyAccess, VerifyRefresh
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=token_issuer_mock.go github.com/savitara/savitara-api/internal/ports TokenIssuer
