// Package internaldefs holds the shared metric name and help tables used by
// the otel and prometheus exporters. It exists so the two exporters cannot
// drift apart on naming.
package internaldefs

import (
	authguard "github.com/ethanvx/authguard"
)

// CounterDef binds a MetricID to its exported name and help text.
type CounterDef struct {
	ID   authguard.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in emission order.
var CounterDefs = []CounterDef{
	{ID: authguard.MetricLimitAllowed, Name: "authguard_limit_allowed_total", Help: "Limit checks that admitted the attempt."},
	{ID: authguard.MetricLimitDenied, Name: "authguard_limit_denied_total", Help: "Limit checks that denied the attempt."},
	{ID: authguard.MetricLimitBlocked, Name: "authguard_limit_blocked_total", Help: "Identifiers newly entering the blocked state."},
	{ID: authguard.MetricLimitReset, Name: "authguard_limit_reset_total", Help: "Explicit and success-driven limit resets."},
	{ID: authguard.MetricLimitBypass, Name: "authguard_limit_bypass_total", Help: "Checks short-circuited by bypass policy."},
	{ID: authguard.MetricAdminBlock, Name: "authguard_admin_block_total", Help: "Administrative block overrides."},
	{ID: authguard.MetricSweepEvicted, Name: "authguard_sweep_evicted_total", Help: "Expired limiter entries evicted."},
	{ID: authguard.MetricRefreshSuccess, Name: "authguard_refresh_success_total", Help: "Refresh sequences ending in success."},
	{ID: authguard.MetricRefreshFailure, Name: "authguard_refresh_failure_total", Help: "Refresh sequences ending in failure."},
	{ID: authguard.MetricRefreshAttemptFailure, Name: "authguard_refresh_attempt_failure_total", Help: "Individual failed provider calls."},
	{ID: authguard.MetricRefreshScheduled, Name: "authguard_refresh_scheduled_total", Help: "Armed proactive refresh timers."},
	{ID: authguard.MetricRefreshNeeded, Name: "authguard_refresh_needed_total", Help: "Immediate-refresh determinations."},
	{ID: authguard.MetricRefreshTimerCleared, Name: "authguard_refresh_timer_cleared_total", Help: "Cancelled proactive refresh timers."},
}

// AuditDroppedName is the counter for audit events dropped under
// backpressure, sourced outside the snapshot.
const AuditDroppedName = "authguard_audit_dropped_total"

// AuditDroppedHelp documents AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
