package engine

// DefaultEngines returns the seed collection installed on first run and
// restored by reset. Callers receive a fresh copy.
func DefaultEngines() []Engine {
	now := Now()
	return []Engine{
		{
			ID:        "youtube-text",
			Title:     "Search on YouTube",
			URL:       "https://www.youtube.com/results?search_query=%s",
			Icon:      "🎬",
			IconType:  IconEmoji,
			Enabled:   true,
			IsDefault: true,
			Contexts:  []Context{ContextSelection},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        "google-image",
			Title:     "Search Image on Google",
			URL:       "https://www.google.com/searchbyimage?image_url=%s",
			Icon:      "🖼️",
			IconType:  IconEmoji,
			Enabled:   true,
			IsDefault: true,
			Contexts:  []Context{ContextImage},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
