// Package rentdistributionservice implements the proportional rent
// distribution engine for fractionalized assets.
//
// The module owns the append-only distribution log, per-holder accrual
// checkpoints, and the withdrawal path. It exposes HTTP command/query
// handlers, the pre-transfer checkpoint hook consumed by the unit
// ledger, and the outbox relay worker entrypoint.
package rentdistributionservice
