// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

// Package account implements the credential and session lifecycle core.
//
// # Domain Types
//
// Domain types (Account, Session) should be created using their
// constructors:
//   - NewAccount - creates an Account with a normalized email
//   - NewSession - creates a Session with a validated principal and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - LifecycleService - signup and account deletion
//   - AuthService - login, logout, password reset, current principal
//   - ProfileService - profile, password, and provider-link mutations
//
// Services are created with New*Service constructors that validate
// dependencies. All persisted state is owned by the CredentialStore and
// SessionRepository implementations; services never cache an Account
// beyond a single operation.
package account
