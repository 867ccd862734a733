// Package experiment implements the experiment lifecycle.
//
// An experiment is created by a user for one client, started by that
// client, and stopped by either of them:
//
//	INITIATED ──start──▶ RUNNING ──stop──▶ COMPLETED
//	    └─────────────stop─────────────────▲
//
// A client has at most one experiment that is not COMPLETED. Creation
// notifies the client over the configured Notifier; if that fails the new
// experiment is deleted and the caller receives a BadGateway error.
//
// The Engine also serves as the measurement package's ExperimentSource.
package experiment
