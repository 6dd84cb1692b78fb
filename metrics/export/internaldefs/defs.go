package internaldefs

import (
	"github.com/MrEthical07/bruteguard"
)

type CounterDef struct {
	ID   bruteguard.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   bruteguard.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter fed from Engine.AuditDropped.
const AuditDroppedName = "bruteguard_audit_dropped_total"

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: bruteguard.MetricValidateAllow, Name: "bruteguard_validate_allow_total", Help: "Validate calls that allowed the attempt."},
	{ID: bruteguard.MetricValidateChallenge, Name: "bruteguard_validate_challenge_total", Help: "Validate calls that required a challenge."},
	{ID: bruteguard.MetricValidateBanned, Name: "bruteguard_validate_banned_total", Help: "Validate calls rejected by a ban."},
	{ID: bruteguard.MetricFailureRecorded, Name: "bruteguard_failure_recorded_total", Help: "Failed logins recorded."},
	{ID: bruteguard.MetricSuccessRecorded, Name: "bruteguard_success_recorded_total", Help: "Successful logins that cleared history."},
	{ID: bruteguard.MetricChallengePassed, Name: "bruteguard_challenge_passed_total", Help: "Challenge passes recorded."},
	{ID: bruteguard.MetricStoreError, Name: "bruteguard_store_error_total", Help: "Cache store failures."},
	{ID: bruteguard.MetricStoreFailOpen, Name: "bruteguard_store_fail_open_total", Help: "Validate calls that failed open on a store error."},
	{ID: bruteguard.MetricListScan, Name: "bruteguard_list_scan_total", Help: "Identifier listings served by a key scan."},
	{ID: bruteguard.MetricListScanUnsupported, Name: "bruteguard_list_scan_unsupported_total", Help: "Identifier listings answered empty without key scan support."},
}

var HistogramDefs = []HistogramDef{
	{ID: bruteguard.MetricValidateLatency, Name: "bruteguard_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds are the upper bounds of the 8 latency buckets in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in a form valid inside instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding or truncating to 8 buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
