package permission

import "time"

// CooldownInterval is the minimum time between two permission screens once
// the user has seen it.
const CooldownInterval = 72 * time.Hour

const (
	KeyHasSeenScreen = "has_seen_permission_screen"
	KeyLastCheckTime = "last_permission_check_time"
)

// Policy is the persisted re-prompt state.
type Policy struct {
	HasSeenScreen bool       `json:"has_seen_screen"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
}

// ShouldOfferSettingsRedirect is true when any kind is denied. Denied kinds
// cannot be prompted again in-app.
func ShouldOfferSettingsRedirect(state State) bool {
	for _, k := range Kinds {
		if state.Status(k) == StatusDenied {
			return true
		}
	}
	return false
}

// DeniedKinds lists the kinds that need a trip to system settings.
func DeniedKinds(state State) []Kind {
	var out []Kind
	for _, k := range Kinds {
		if state.Status(k) == StatusDenied {
			out = append(out, k)
		}
	}
	return out
}

// ShouldShowPermissionScreen decides whether to interrupt the user with the
// permission screen. A policy with no recorded check counts as past the
// cooldown.
func ShouldShowPermissionScreen(state State, policy Policy, now time.Time) bool {
	if state.AllGranted {
		return false
	}
	if !policy.HasSeenScreen {
		return true
	}
	return cooldownElapsed(policy, now)
}

func cooldownElapsed(policy Policy, now time.Time) bool {
	if policy.LastCheckedAt == nil {
		return true
	}
	return now.Sub(*policy.LastCheckedAt) > CooldownInterval
}
