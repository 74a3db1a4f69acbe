package postgres

import (
	"go.opentelemetry.io/otel"

	"gitlab.com/ucmsv2/authcode-service/pkg/logging"
)

const scope = "authcode/internal/adapters/repos/postgres"

var (
	tracer = otel.Tracer(scope)
	logger = logging.NewLogger(scope)
)
