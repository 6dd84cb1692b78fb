package security

import "time"

// Report summarizes the protection posture of a running Engine.
type Report struct {
	KeyPrefix              string        `json:"key_prefix"`
	SoftLimit              int           `json:"soft_limit"`
	BanLimit               int           `json:"ban_limit"`
	BanWindow              time.Duration `json:"ban_window_ns"`
	SoftChallengeTTL       time.Duration `json:"soft_challenge_ttl_ns"`
	SoftChallengeReachable bool          `json:"soft_challenge_reachable"`
	FailOpen               bool          `json:"fail_open"`
	OperationTimeout       time.Duration `json:"operation_timeout_ns"`
	KeyScanAvailable       bool          `json:"key_scan_available"`
	AtomicInitIncrement    bool          `json:"atomic_init_increment"`
	AuditEnabled           bool          `json:"audit_enabled"`
	MetricsEnabled         bool          `json:"metrics_enabled"`
	// AttemptsBeforeBan is how many failures a client gets inside one ban window.
	AttemptsBeforeBan int `json:"attempts_before_ban"`
}

type ReportInput struct {
	KeyPrefix           string
	SoftLimit           int
	BanLimit            int
	BanWindow           time.Duration
	SoftChallengeTTL    time.Duration
	FailOpen            bool
	OperationTimeout    time.Duration
	KeyScanAvailable    bool
	AtomicInitIncrement bool
	AuditEnabled        bool
	MetricsEnabled      bool
}

func BuildReport(input ReportInput) Report {
	attempts := input.BanLimit - 1
	if attempts < 0 {
		attempts = 0
	}

	return Report{
		KeyPrefix:              input.KeyPrefix,
		SoftLimit:              input.SoftLimit,
		BanLimit:               input.BanLimit,
		BanWindow:              input.BanWindow,
		SoftChallengeTTL:       input.SoftChallengeTTL,
		SoftChallengeReachable: input.SoftLimit < input.BanLimit,
		FailOpen:               input.FailOpen,
		OperationTimeout:       input.OperationTimeout,
		KeyScanAvailable:       input.KeyScanAvailable,
		AtomicInitIncrement:    input.AtomicInitIncrement,
		AuditEnabled:           input.AuditEnabled,
		MetricsEnabled:         input.MetricsEnabled,
		AttemptsBeforeBan:      attempts,
	}
}
