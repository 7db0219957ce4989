// Package policy gates workflow generation with Open Policy Agent.
//
// Serialized workflows are evaluated against Rego policies before they are
// sent to the generation service. A built-in policy set ships with the
// engine (test-stage presence, checkout placement, pinned images, stage
// commands); users add their own .rego or .json policy files, which the
// loader can hot-reload on change.
//
// # Input document
//
// Policies see the workflow exactly as the graph serializes it:
//
//	{
//	    "workflow": {"version": 1, "stages": [...], "links": [...]},
//	    "provider": "github-actions",
//	    "context":  {"repository": "acme/widgets", "operation": "generate"}
//	}
//
// A policy denies by contributing to its package's deny set:
//
//	package pipewright.policies.example
//
//	import rego.v1
//
//	deny contains violation if {
//	    some stage in input.workflow.stages
//	    stage.kind == "deploy"
//	    input.provider == "circleci"
//	    violation := {"message": "deploys are not run on circleci", "severity": "error"}
//	}
//
// Violations at error or critical severity block generation; warnings and
// info are surfaced but do not.
package policy
