package postgres

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

var (
	tracer = otel.Tracer("acme/internal/adapters/repos/postgres")
	logger = otelslog.NewLogger("acme/internal/adapters/repos/postgres")
)
