package model

// Preferences holds the user's notification channel settings.
type Preferences struct {
	EmailNotifications bool `json:"emailNotifications"`
	PushNotifications  bool `json:"pushNotifications"`
}

// PreferencesUpdate is a partial change to Preferences. Nil fields are left
// untouched and are not sent to the backend.
type PreferencesUpdate struct {
	EmailNotifications *bool `json:"emailNotifications,omitempty"`
	PushNotifications  *bool `json:"pushNotifications,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u PreferencesUpdate) Empty() bool {
	return u.EmailNotifications == nil && u.PushNotifications == nil
}

// Apply returns p with the set fields of u merged in.
func (p Preferences) Apply(u PreferencesUpdate) Preferences {
	if u.EmailNotifications != nil {
		p.EmailNotifications = *u.EmailNotifications
	}
	if u.PushNotifications != nil {
		p.PushNotifications = *u.PushNotifications
	}
	return p
}

// Diff returns the update that turns p into next, containing only the
// fields that differ.
func (p Preferences) Diff(next Preferences) PreferencesUpdate {
	var u PreferencesUpdate
	if p.EmailNotifications != next.EmailNotifications {
		v := next.EmailNotifications
		u.EmailNotifications = &v
	}
	if p.PushNotifications != next.PushNotifications {
		v := next.PushNotifications
		u.PushNotifications = &v
	}
	return u
}
