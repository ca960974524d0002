package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samvad-hq/samvad-article-summarizer/internal/domain"
)

var (
	themes         = []string{"auto", "light", "dark"}
	summaryLengths = []string{"short", "medium", "long"}
)

// ApplyPreference sets one preference from its key=value form.
func ApplyPreference(p *domain.Preferences, key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	switch key {
	case "theme":
		v, err := oneOf(key, value, themes)
		if err != nil {
			return err
		}
		p.Theme = v
	case "summary_length":
		v, err := oneOf(key, value, summaryLengths)
		if err != nil {
			return err
		}
		p.SummaryLength = v
	case "auto_summarize":
		return setBool(key, value, &p.AutoSummarize)
	case "show_welcome_message":
		return setBool(key, value, &p.ShowWelcomeMessage)
	case "minimized_on_startup":
		return setBool(key, value, &p.MinimizedOnStartup)
	default:
		return fmt.Errorf("unknown preference %q", key)
	}
	return nil
}

func oneOf(key, value string, allowed []string) (string, error) {
	v := strings.ToLower(value)
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid %s %q (want one of %s)", key, value, strings.Join(allowed, ", "))
}

func setBool(key, value string, dst *bool) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = b
	return nil
}
