package service

import (
	"context"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/clients"
)

// openSession derives the context scripts run under: the service user is
// attached for the runner and the session has its own cancellation.
// The returned release must be called on every exit path.
func (s *PatchSystem) openSession(ctx context.Context) (context.Context, func()) {
	sessionCtx, cancel := context.WithCancel(clients.WithUserID(ctx, s.serviceUser))
	s.log.Debug("service session opened", "user", s.serviceUser)

	return sessionCtx, func() {
		cancel()
		s.log.Debug("service session released", "user", s.serviceUser)
	}
}
