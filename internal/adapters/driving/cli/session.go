package cli

import (
	"github.com/custodia-labs/portal-sync/internal/core/ports/driving"
	"github.com/custodia-labs/portal-sync/internal/logger"
)

var cliLog = logger.For("cli")

// shutdownSession stops schedulers started by Initialize or Login.
func shutdownSession(session driving.SessionService) {
	if err := session.Shutdown(); err != nil {
		cliLog.Warn("shutdown: %v", err)
	}
}
