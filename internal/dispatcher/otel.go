package dispatcher

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/skyward/combat-core/internal/dispatcher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
