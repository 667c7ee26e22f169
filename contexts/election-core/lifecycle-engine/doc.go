// Package lifecycleengine implements the election lifecycle and vote
// eligibility engine inside the election-core context.
//
// The module owns phase trigger scheduling, phase event broadcast, and the
// eligibility pre-checks in front of the authoritative vote ledger. It keeps
// business rules in application/domain layers and isolates infrastructure
// concerns behind ports and adapters.
package lifecycleengine
