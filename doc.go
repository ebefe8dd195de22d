// Package sfvalidator provides constraint-aware validation and synthesis of
// Salesforce records for sandbox data seeding.
//
// The package interprets Salesforce validation-rule formulas, extracts
// structural field constraints and cross-field dependencies from object
// schemas, synthesizes rule-compliant records, and validates candidate
// records before they are loaded into an org.
//
// # Quick Start
//
//	import (
//	    sv "github.com/angusmaul/salesforce-sandbox-data-seeder-sub002"
//	    "github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/engine"
//	)
//
//	eng, err := engine.New(schemaProvider,
//	    sv.WithContextTTL(time.Hour),
//	    sv.WithAttemptBudget(5),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	res, err := eng.ValidateData(ctx, &engine.ValidateRequest{
//	    ObjectName: "Account",
//	    Records:    records,
//	})
//	for _, rr := range res.Results {
//	    for _, issue := range rr.Violations() {
//	        fmt.Println(issue.Message)
//	    }
//	}
//
// # Subsystems
//
//   - formula: tokenizer, recursive-descent parser, and evaluator for the
//     validation-rule formula language (AND, IF, ISBLANK, ISPICKVAL, ...)
//   - rule: structural analysis of rule formulas (referenced fields,
//     complexity, risk level, pattern tags)
//   - constraint: derivation of field constraints and dependencies from
//     schema metadata and parsed rules
//   - solver: bounded-retry synthesis of records that satisfy constraints,
//     dependencies, and active rules
//   - engine: orchestration, context caching, risk scoring, optional
//     advisor escalation
//   - prevalidate: memoized, sampled, timeout-aware pre-flight validation
//
// # Degradation Contract
//
// Everything that can be answered locally is. Unsupported formula functions
// evaluate to false instead of erroring; malformed rules classify
// conservatively; an exhausted solver budget returns the best candidate with
// its unresolved violations; an unreachable advisor leaves the local result
// intact. Only schema retrieval failure propagates as an error.
package sfvalidator
