package bruteguard

import (
	"github.com/MrEthical07/bruteguard/internal/security"
	"github.com/MrEthical07/bruteguard/store"
)

// SecurityReport summarizes the effective protection settings of an Engine.
type SecurityReport = security.Report

// SecurityReport returns the posture of e. It performs no I/O.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	_, atomicInit := e.store.(store.InitIncrementer)

	return security.BuildReport(security.ReportInput{
		KeyPrefix:           e.config.Cache.KeyPrefix,
		SoftLimit:           e.config.Protection.SoftLimit,
		BanLimit:            e.config.Protection.BanLimit,
		BanWindow:           e.config.Protection.BanWindow,
		SoftChallengeTTL:    e.config.Protection.SoftChallengeTTL,
		FailOpen:            e.config.Store.FailOpen,
		OperationTimeout:    e.config.Store.OperationTimeout,
		KeyScanAvailable:    e.tracker.CanList(),
		AtomicInitIncrement: atomicInit,
		AuditEnabled:        e.audit != nil,
		MetricsEnabled:      e.metrics.Enabled(),
	})
}
