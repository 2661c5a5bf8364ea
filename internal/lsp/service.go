package lsp

import "context"

// Service is the surface the rest of the application uses to talk to
// running language servers.
type Service interface {
	Init(ctx context.Context)
	Shutdown(ctx context.Context)
	ForceShutdown()

	Clients() map[string]*Client
	ClientsForFile(filePath string) []*Client

	NotifyOpenFile(ctx context.Context, filePath string)
	WaitForDiagnostics(ctx context.Context, filePath string)
	FormatDiagnostics(filePath string) string
}
