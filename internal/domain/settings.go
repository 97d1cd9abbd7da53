package domain

// Settings is the user-tunable extension configuration.
type Settings struct {
	AutoCapture bool   `json:"auto_capture"`
	Theme       string `json:"theme"`
}

// DefaultSettings returns the settings seeded on first run.
func DefaultSettings() Settings {
	return Settings{AutoCapture: true, Theme: "dark"}
}
