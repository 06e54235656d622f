// Package version хранит сведения о сборке, проставляемые через -ldflags:
//
//	-X github.com/vladislavdragonenkov/orders/internal/version.version=v1.2.0
package version

import log "github.com/sirupsen/logrus"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GetVersion возвращает версию сборки; её же отдаёт /health.
func GetVersion() string { return version }

// Fields возвращает сведения о сборке для стартовой записи лога.
func Fields() log.Fields {
	return log.Fields{
		"version":    version,
		"commit":     commit,
		"build_date": date,
	}
}
