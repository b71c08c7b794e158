// Package mocks provides gomock mocks of the client ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	recorder := mocks.NewMockScanRecorder(ctrl)
//	recorder.EXPECT().AddScan(gomock.Any(), gomock.Any()).Return(nil)
package mocks

// Backend ports.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=product_lookup_mock.go github.com/nutrinom/nutrinom-go/internal/ports ProductLookup
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=scan_recorder_mock.go github.com/nutrinom/nutrinom-go/internal/ports ScanRecorder
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=enricher_mock.go github.com/nutrinom/nutrinom-go/internal/ports Enricher
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=history_source_mock.go github.com/nutrinom/nutrinom-go/internal/ports HistorySource

// Auth ports.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=account_service_mock.go github.com/nutrinom/nutrinom-go/internal/ports AccountService
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_exchanger_mock.go github.com/nutrinom/nutrinom-go/internal/ports CredentialExchanger
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_provider_mock.go github.com/nutrinom/nutrinom-go/internal/ports IdentityProvider
