package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	ActivityPolicyScanTicket     = "scan_ticket"
	ActivityPolicyMergeDraft     = "merge_draft"
	ActivityPolicyMarkScanFailed = "mark_scan_failed"
	ActivityPolicyFetchClaim     = "fetch_claim"
	ActivityPolicyRecordSnapshot = "record_snapshot"
)

type activityPolicy struct {
	StartToCloseTimeout time.Duration
	RetryPolicy         temporal.RetryPolicy
}

var storeRetry = temporal.RetryPolicy{
	InitialInterval:    1 * time.Second,
	BackoffCoefficient: 2,
	MaximumInterval:    10 * time.Second,
	MaximumAttempts:    3,
}

var activityPolicies = map[string]activityPolicy{
	// A failed scan falls back to manual entry, so it is never retried.
	ActivityPolicyScanTicket: {
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	},
	ActivityPolicyMergeDraft: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         storeRetry,
	},
	ActivityPolicyMarkScanFailed: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         storeRetry,
	},
	ActivityPolicyFetchClaim: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{ClaimNotFoundErrorType},
		},
	},
	ActivityPolicyRecordSnapshot: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         storeRetry,
	},
}

func ActivityOptionsFor(policyName string) (workflow.ActivityOptions, error) {
	policy, ok := activityPolicies[policyName]
	if !ok {
		return workflow.ActivityOptions{}, fmt.Errorf("unknown activity policy: %s", policyName)
	}

	retry := policy.RetryPolicy
	return workflow.ActivityOptions{
		StartToCloseTimeout: policy.StartToCloseTimeout,
		RetryPolicy:         &retry,
	}, nil
}

func mustActivityContext(ctx workflow.Context, policyName string) workflow.Context {
	ao, err := ActivityOptionsFor(policyName)
	if err != nil {
		panic(err)
	}
	return workflow.WithActivityOptions(ctx, ao)
}
