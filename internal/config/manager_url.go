package config

import "os"

// URLResolutionContext holds all inputs needed to resolve the manager URL.
type URLResolutionContext struct {
	// FlagURL from the --url CLI flag
	FlagURL string

	// EnvURL from the BATCH_MANAGER_URL environment variable
	EnvURL string

	// ConfigURL from the config file manager_url key
	ConfigURL string

	// ConfigPath is the file ConfigURL came from (for Source reporting)
	ConfigPath string
}

// ResolvedURL is the final manager URL and where it came from.
type ResolvedURL struct {
	URL    string
	Source string
}

// ResolveManagerURL determines the manager base URL.
// Precedence (highest to lowest):
// 1. FlagURL (--url CLI flag)
// 2. EnvURL (BATCH_MANAGER_URL)
// 3. ConfigURL (manager_url in the config file)
// 4. Default (http://localhost:9681)
func ResolveManagerURL(ctx URLResolutionContext) ResolvedURL {
	switch {
	case ctx.FlagURL != "":
		return ResolvedURL{URL: ctx.FlagURL, Source: "cli:--url"}
	case ctx.EnvURL != "":
		return ResolvedURL{URL: ctx.EnvURL, Source: "env:" + EnvManagerURL}
	case ctx.ConfigURL != "":
		source := "config"
		if ctx.ConfigPath != "" {
			source = "config:" + ctx.ConfigPath
		}
		return ResolvedURL{URL: ctx.ConfigURL, Source: source}
	default:
		return ResolvedURL{URL: DefaultManagerURL, Source: "default"}
	}
}

// ResolveManagerURL resolves the manager URL for this config using the process
// environment and an optional flag override.
func (c *Config) ResolveManagerURL(flagURL string) ResolvedURL {
	return ResolveManagerURL(URLResolutionContext{
		FlagURL:    flagURL,
		EnvURL:     os.Getenv(EnvManagerURL),
		ConfigURL:  c.ManagerURL,
		ConfigPath: c.Path,
	})
}
