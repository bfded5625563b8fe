//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools run via `go run` or `go install` and are not tracked in go.mod
// since they are development tools, not runtime dependencies.
package tools

// Development tools:
//
// mockgen - regenerates internal/mocks from the ports interfaces
//   Run: go generate ./internal/mocks
//   Version: go.uber.org/mock v0.6.0 (matches go.mod)
//   Docs: https://github.com/uber-go/mock
//
// Air - Live reload while iterating on the gateway with AUTH_PROVIDER=mock
//   Install: go install github.com/air-verse/air@v1.63.0
//   Run: air --build.cmd "go build -o ./tmp/authbff ./cmd/authbff" --build.bin "./tmp/authbff serve"
//   Docs: https://github.com/air-verse/air
