package permission

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindCamera        Kind = "camera"
	KindMediaLibrary  Kind = "media_library"
	KindNotifications Kind = "notifications"
)

// Kinds lists every kind in the order RequestAll asks for them.
var Kinds = []Kind{KindCamera, KindMediaLibrary, KindNotifications}

func (k Kind) Valid() bool {
	switch k {
	case KindCamera, KindMediaLibrary, KindNotifications:
		return true
	}
	return false
}

// DisplayName is the user-facing name of the kind.
func (k Kind) DisplayName() string {
	switch k {
	case KindCamera:
		return "Camera"
	case KindMediaLibrary:
		return "Photos"
	case KindNotifications:
		return "Notifications"
	}
	return string(k)
}

type Status string

const (
	StatusGranted      Status = "granted"
	StatusDenied       Status = "denied"
	StatusUndetermined Status = "undetermined"
	StatusLimited      Status = "limited"
)

func (s Status) Valid() bool {
	switch s {
	case StatusGranted, StatusDenied, StatusUndetermined, StatusLimited:
		return true
	}
	return false
}

// State holds the last observed status of every kind. AllGranted is true
// only when all three are granted; limited does not count.
type State struct {
	Camera        Status `json:"camera"`
	MediaLibrary  Status `json:"media_library"`
	Notifications Status `json:"notifications"`
	AllGranted    bool   `json:"all_granted"`
}

// NewState returns a state with every kind undetermined.
func NewState() State {
	return State{
		Camera:        StatusUndetermined,
		MediaLibrary:  StatusUndetermined,
		Notifications: StatusUndetermined,
	}
}

func (s State) Status(k Kind) Status {
	switch k {
	case KindCamera:
		return s.Camera
	case KindMediaLibrary:
		return s.MediaLibrary
	case KindNotifications:
		return s.Notifications
	}
	return StatusUndetermined
}

// With returns a copy of s with k set to status and AllGranted recomputed.
func (s State) With(k Kind, status Status) State {
	switch k {
	case KindCamera:
		s.Camera = status
	case KindMediaLibrary:
		s.MediaLibrary = status
	case KindNotifications:
		s.Notifications = status
	}
	s.AllGranted = s.Camera == StatusGranted &&
		s.MediaLibrary == StatusGranted &&
		s.Notifications == StatusGranted
	return s
}

// SettingsPrompt is the message shown when a permission can only be granted
// from system settings.
type SettingsPrompt struct {
	Kind    Kind   `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

func NewSettingsPrompt(k Kind) SettingsPrompt {
	name := k.DisplayName()
	return SettingsPrompt{
		Kind:  k,
		Title: fmt.Sprintf("%s Permission Required", name),
		Message: fmt.Sprintf(
			"We need access to your %s to enable this feature. Please grant permission in the app settings.",
			strings.ToLower(name),
		),
	}
}
