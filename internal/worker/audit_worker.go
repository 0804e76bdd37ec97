package worker

import (
	"github.com/sekolahku/portal/internal/service"
)

// StartAuditWorker registers the security audit handlers on the dispatcher.
func StartAuditWorker(audit *service.SecurityAuditService) {
	if audit == nil {
		return
	}
	audit.RegisterHandlers()
}
