package catalog

import "github.com/reptin/rcs/internal/engine"

// SeedPlatforms is the built-in catalog shipped with the server. `rcs
// catalog seed` loads these; operators can add more with Upsert.
func SeedPlatforms() []Platform {
	return []Platform{
		{
			ID:       "google",
			Title:    "Google",
			URL:      "https://www.google.com/search?q=%s",
			Icon:     "🔍",
			Contexts: []engine.Context{engine.ContextSelection},
			Tags:     []string{"web", "general"},
			Category: "search",
		},
		{
			ID:       "bing",
			Title:    "Bing",
			URL:      "https://www.bing.com/search?q=%s",
			Icon:     "🔍",
			Contexts: []engine.Context{engine.ContextSelection},
			Tags:     []string{"web", "general"},
			Category: "search",
		},
		{
			ID:       "duckduckgo",
			Title:    "DuckDuckGo",
			URL:      "https://duckduckgo.com/?q=%s",
			Icon:     "🦆",
			Contexts: []engine.Context{engine.ContextSelection},
			Tags:     []string{"web", "privacy"},
			Category: "search",
		},
		{
			ID:       "youtube",
			Title:    "YouTube",
			URL:      "https://www.youtube.com/results?search_query=%s",
			Icon:     "▶️",
			Contexts: []engine.Context{engine.ContextSelection},
			Tags:     []string{"video"},
			Category: "media",
		},
		{
			ID:       "wikipedia",
			Title:    "Wikipedia",
			URL:      "https://en.wikipedia.org/wiki/Special:Search?search=%s",
			Icon:     "📚",
			Contexts: []engine.Context{engine.ContextSelection},
			Tags:     []string{"reference", "encyclopedia"},
			Category: "reference",
		},
		{
			ID:       "github",
			Title:    "GitHub",
			URL:      "https://github.com/search?q=%s",
			Icon:     "🐙",
			Contexts: []engine.Context{engine.ContextSelection},
			Tags:     []string{"code", "developer"},
			Category: "developer",
		},
		{
			ID:       "stackoverflow",
			Title:    "Stack Overflow",
			URL:      "https://stackoverflow.com/search?q=%s",
			Icon:     "💬",
			Contexts: []engine.Context{engine.ContextSelection},
			Tags:     []string{"code", "developer", "qa"},
			Category: "developer",
		},
		{
			ID:       "amazon",
			Title:    "Amazon",
			URL:      "https://www.amazon.com/s?k=%s",
			Icon:     "🛒",
			Contexts: []engine.Context{engine.ContextSelection},
			Tags:     []string{"shopping"},
			Category: "shopping",
		},
		{
			ID:       "google-images",
			Title:    "Google Images",
			URL:      "https://lens.google.com/uploadbyurl?url=%s",
			Icon:     "🖼️",
			Contexts: []engine.Context{engine.ContextImage},
			Tags:     []string{"image", "reverse"},
			Category: "image",
		},
		{
			ID:       "tineye",
			Title:    "TinEye",
			URL:      "https://tineye.com/search?url=%s",
			Icon:     "👁️",
			Contexts: []engine.Context{engine.ContextImage},
			Tags:     []string{"image", "reverse"},
			Category: "image",
		},
	}
}

// Seed inserts the built-in platforms, overwriting existing rows with the
// same id. Returns how many platforms were written.
func (s *Store) Seed() (int, error) {
	platforms := SeedPlatforms()
	for _, p := range platforms {
		if err := s.Upsert(p); err != nil {
			return 0, err
		}
	}
	return len(platforms), nil
}
