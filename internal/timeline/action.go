package timeline

// completionStatuses is the fixed status set that, together with a newly
// set completedAt, marks a review as completed.
var completionStatuses = map[string]struct{}{
	"completed": {},
	"done":      {},
}

// DetermineAction derives the semantic action for a before/after pair.
// Precedence is deliberate: a status change always wins over completion
// and publish detection even when both hold for the same pair.
func DetermineAction(before, after Snapshot) Action {
	if before == nil && after != nil {
		return ActionCreated
	}
	if before != nil && after == nil {
		return ActionDeleted
	}
	if before == nil && after == nil {
		return ActionUpdated
	}

	if statusOf(before) != statusOf(after) {
		return ActionStatusChanged
	}

	if !hasValue(before, "completedAt") && hasValue(after, "completedAt") {
		if _, ok := completionStatuses[statusOf(after)]; ok {
			return ActionCompleted
		}
	}

	if (!hasValue(before, "publishedAt") && hasValue(after, "publishedAt")) ||
		(statusOf(before) != "published" && statusOf(after) == "published") {
		return ActionPublished
	}

	return ActionUpdated
}

// InferSeverity is the default severity for an action; explicit
// caller-supplied severity overrides it.
func InferSeverity(action Action, source Source) Severity {
	if action == ActionDeleted {
		return SeverityWarn
	}
	if action == ActionStatusChanged && source == SourceReview {
		return SeverityNotice
	}
	if action == ActionCompleted {
		return SeverityNotice
	}
	return SeverityInfo
}

func statusOf(snapshot Snapshot) string {
	if snapshot == nil {
		return ""
	}
	if status, ok := snapshot["status"].(string); ok {
		return status
	}
	return ""
}

func hasValue(snapshot Snapshot, key string) bool {
	if snapshot == nil {
		return false
	}
	value, ok := snapshot[key]
	if !ok || value == nil {
		return false
	}
	if s, isString := value.(string); isString && s == "" {
		return false
	}
	return true
}
