package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reptin/rcs/internal/engine"
	"github.com/reptin/rcs/internal/store"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "Inspect and edit the platform collection",
}

var (
	addTitle    string
	addURL      string
	addIcon     string
	addContexts []string
	addShortcut string
)

var enginesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all engines",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		engines := s.Get()
		if len(engines) == 0 {
			fmt.Println("No engines.")
			return nil
		}
		for _, e := range engines {
			state := " "
			if e.Enabled {
				state = "*"
			}
			line := fmt.Sprintf("%s %-40s %-20s %s", state, e.ID, e.Title, e.URL)
			if e.Shortcut != nil {
				line += "  [" + e.Shortcut.Canonical() + "]"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var enginesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		contexts := make([]engine.Context, 0, len(addContexts))
		for _, c := range addContexts {
			contexts = append(contexts, engine.Context(c))
		}

		e := engine.Engine{
			Title:    addTitle,
			URL:      addURL,
			Icon:     addIcon,
			Enabled:  true,
			Contexts: contexts,
		}
		if strings.HasPrefix(addIcon, "http://") || strings.HasPrefix(addIcon, "https://") {
			e.IconType = engine.IconURL
		}
		if addShortcut != "" {
			sc, err := parseShortcut(addShortcut)
			if err != nil {
				return err
			}
			e.Shortcut = &sc
		}

		s, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		added, err := s.Add(e)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s)\n", added.Title, added.ID)
		return nil
	},
}

var enginesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an engine by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()
		if err := s.Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

var enginesToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Enable or disable an engine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()
		if err := s.ToggleEnabled(args[0]); err != nil {
			return err
		}
		fmt.Printf("Toggled %s\n", args[0])
		return nil
	},
}

var enginesResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace the collection with the built-in defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()
		if err := s.Reset(); err != nil {
			return err
		}
		fmt.Println("Collection reset to defaults.")
		return nil
	},
}

var enginesExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the collection as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		data, err := store.ExportDocument(s.Get())
		if err != nil {
			return err
		}
		if len(args) == 0 {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(args[0], data, 0644); err != nil {
			return err
		}
		fmt.Printf("Exported %d engines to %s\n", len(s.Get()), args[0])
		return nil
	},
}

var enginesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the collection from a JSON export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		engines, err := store.ImportDocument(data)
		if err != nil {
			return err
		}

		s, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()
		if err := s.Set(engines); err != nil {
			return err
		}
		fmt.Printf("Imported %d engines.\n", len(engines))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enginesCmd)
	enginesCmd.AddCommand(enginesListCmd, enginesAddCmd, enginesRemoveCmd,
		enginesToggleCmd, enginesResetCmd, enginesExportCmd, enginesImportCmd)

	enginesAddCmd.Flags().StringVar(&addTitle, "title", "", "Engine title (required)")
	enginesAddCmd.Flags().StringVar(&addURL, "url", "", "URL template with a %s placeholder (required)")
	enginesAddCmd.Flags().StringVar(&addIcon, "icon", "", "Emoji or icon URL")
	enginesAddCmd.Flags().StringSliceVar(&addContexts, "context", []string{"selection"},
		"Contexts: selection, image, link, page")
	enginesAddCmd.Flags().StringVar(&addShortcut, "shortcut", "",
		`Keyboard shortcut, e.g. "ctrl+shift+k"`)
	enginesAddCmd.MarkFlagRequired("title")
	enginesAddCmd.MarkFlagRequired("url")
}

// openStore opens the configured SQLite-backed engine store.
func openStore() (*store.Store, func(), error) {
	cfg := loadConfig()
	backend, err := store.NewSQLiteBackend(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	s, err := store.Open(backend)
	if err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("failed to open engine store: %w", err)
	}
	return s, func() {
		s.Close()
		backend.Close()
	}, nil
}

// parseShortcut turns "ctrl+shift+k" into a shortcut: every part but the
// last must be a modifier.
func parseShortcut(spec string) (engine.Shortcut, error) {
	parts := strings.Split(strings.ToLower(spec), "+")
	if len(parts) < 2 {
		return engine.Shortcut{}, fmt.Errorf("shortcut %q needs at least one modifier and a key", spec)
	}

	mods := make([]engine.Modifier, 0, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		switch m := engine.Modifier(p); m {
		case engine.ModCtrl, engine.ModAlt, engine.ModShift, engine.ModMeta:
			mods = append(mods, m)
		default:
			return engine.Shortcut{}, fmt.Errorf("unknown modifier %q in shortcut %q", p, spec)
		}
	}

	key := parts[len(parts)-1]
	if key == "" {
		return engine.Shortcut{}, fmt.Errorf("shortcut %q is missing a key", spec)
	}
	return engine.Shortcut{Key: key, Modifiers: mods}, nil
}
