// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include filesystem setup (MustMkdirAll, MustWriteFile,
// WriteModule, WritePackage), environment variable management (MustSetenv)
// and a scripted stand-in for the git cloner (FakeCloner).
package testutil
