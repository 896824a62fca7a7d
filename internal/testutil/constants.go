// Package testutil provides shared constants for tests across go-bricks-sdk.
// These constants eliminate repeated string literals in test files and ensure consistency.
package testutil

// Test Endpoints
//
// These constants define the fake service addresses used by request-building tests.
// Nothing ever listens on them; tests that hit the network use httptest servers.

const (
	// TestExampleURL is a generic absolute request URL.
	TestExampleURL = "https://api.example.com/items"

	// TestVaultEndpoint is the base endpoint of the fake key-vault style service
	// used by restproxy operation tests.
	TestVaultEndpoint = "https://vault.example"
)

// Test Media Types

const (
	// TestContentTypeJSON is the JSON media type sent and asserted by pipeline tests.
	TestContentTypeJSON = "application/json"
)

// Test Request Identifiers

const (
	// TestRequestID is a fixed client request id for header propagation tests.
	TestRequestID = "3f8a2c1e-0b7d-4e59-9a61-1c2d3e4f5a6b"
)
