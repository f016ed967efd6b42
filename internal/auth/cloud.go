package auth

import (
	"log/slog"

	httpadapter "envoyauth/internal/adapters/http"
	"envoyauth/internal/domain"
)

// defaultCloudTransport builds the production cloud transport: strict TLS
// verification, fixed timeout, redirects followed.
func defaultCloudTransport(logger *slog.Logger) domain.CloudTransport {
	return httpadapter.NewCloudClient(logger)
}
