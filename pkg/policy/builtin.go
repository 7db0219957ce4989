package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		requireTestStagePolicy(),
		checkoutFirstPolicy(),
		pinnedImagesPolicy(),
		stageCommandsPolicy(),
	}
}

// requireTestStagePolicy blocks workflows that ship nothing to verify them.
func requireTestStagePolicy() Policy {
	return Policy{
		Name:        "require-test-stage",
		Description: "Every pipeline must contain at least one test stage",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"quality"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package pipewright.policies.testing

import rego.v1

has_test_stage if {
	some stage in input.workflow.stages
	stage.kind == "test"
}

deny contains violation if {
	not has_test_stage
	violation := {
		"message": "pipeline has no test stage",
		"severity": "error",
	}
}

has_deploy_stage if {
	some stage in input.workflow.stages
	stage.kind == "deploy"
}

deny contains violation if {
	has_deploy_stage
	not has_test_stage
	violation := {
		"message": "pipeline deploys without running any tests",
		"severity": "critical",
	}
}
`,
	}
}

// checkoutFirstPolicy warns when no checkout stage exists.
func checkoutFirstPolicy() Policy {
	return Policy{
		Name:        "checkout-first",
		Description: "Pipelines should start from a checkout stage",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"structure"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package pipewright.policies.structure

import rego.v1

has_checkout if {
	some stage in input.workflow.stages
	stage.kind == "checkout"
}

deny contains violation if {
	count(input.workflow.stages) > 0
	not has_checkout
	violation := {
		"message": "pipeline has no checkout stage",
		"severity": "warning",
	}
}

deny contains violation if {
	some stage in input.workflow.stages
	stage.kind == "checkout"
	stage.level != 0
	violation := {
		"message": sprintf("checkout stage %s is not at the start of the pipeline", [stage.id]),
		"severity": "warning",
		"stage": stage.id,
	}
}
`,
	}
}

// pinnedImagesPolicy warns about floating container image tags.
func pinnedImagesPolicy() Policy {
	return Policy{
		Name:        "pinned-images",
		Description: "Container images should be pinned to an explicit tag",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"images", "reproducibility"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package pipewright.policies.images

import rego.v1

deny contains violation if {
	some stage in input.workflow.stages
	stage.image != ""
	not contains(stage.image, ":")
	violation := {
		"message": sprintf("stage %s uses untagged image %s", [stage.id, stage.image]),
		"severity": "warning",
		"stage": stage.id,
	}
}

deny contains violation if {
	some stage in input.workflow.stages
	endswith(stage.image, ":latest")
	violation := {
		"message": sprintf("stage %s uses floating tag %s", [stage.id, stage.image]),
		"severity": "warning",
		"stage": stage.id,
	}
}
`,
	}
}

// stageCommandsPolicy warns about stages that do nothing.
func stageCommandsPolicy() Policy {
	return Policy{
		Name:        "stage-commands",
		Description: "Stages other than checkout must declare commands",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"structure"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package pipewright.policies.commands

import rego.v1

deny contains violation if {
	some stage in input.workflow.stages
	stage.kind != "checkout"
	count(object.get(stage, "commands", [])) == 0
	violation := {
		"message": sprintf("stage %s declares no commands", [stage.id]),
		"severity": "warning",
		"stage": stage.id,
	}
}
`,
	}
}
