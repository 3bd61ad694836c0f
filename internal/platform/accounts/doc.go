// Package accounts is a minimal client for the account-management platform.
//
// It creates sub-accounts (locations) under the agency and issues scoped
// access tokens for them. Responses are validated into typed records; a
// response without the fields the pipeline relies on is reported as
// [ErrInvalidResponse].
package accounts
