// Package i18n provides internationalization support for announced messages
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
)

const (
	// DefaultLanguage is the fallback language when no translation is available
	DefaultLanguage = "en"
	// GermanMessages is the German catalog
	GermanMessages = "de"
)

var (
	supportedTags = []language.Tag{language.English, language.German}
	matcher       = language.NewMatcher(supportedTags)
)

// Localizer provides translation functionality
type Localizer struct {
	language string
	messages map[string]string
}

// NewLocalizer creates a localizer for the closest supported match of the
// requested BCP 47 tag, so "de-AT" or "en_GB" resolve to a catalog.
func NewLocalizer(requested string) *Localizer {
	lang := Match(requested)
	return &Localizer{
		language: lang,
		messages: getMessages(lang),
	}
}

// Language returns the catalog the localizer resolved to.
func (l *Localizer) Language() string {
	return l.language
}

// T translates a message key, with optional parameters for formatting
func (l *Localizer) T(key string, args ...interface{}) string {
	if message, exists := l.messages[key]; exists {
		if len(args) > 0 {
			return fmt.Sprintf(message, args...)
		}
		return message
	}

	// Fallback to English if key not found in current language
	if l.language != DefaultLanguage {
		if fallbackMessage, exists := getMessages(DefaultLanguage)[key]; exists {
			if len(args) > 0 {
				return fmt.Sprintf(fallbackMessage, args...)
			}
			return fallbackMessage
		}
	}

	// Ultimate fallback: return the key itself
	return key
}

// Match returns the supported language code closest to requested.
func Match(requested string) string {
	if requested == "" {
		return DefaultLanguage
	}
	_, index := language.MatchStrings(matcher, requested)
	base, _ := supportedTags[index].Base()
	return base.String()
}

// GetSupportedLanguages returns list of supported language codes
func GetSupportedLanguages() []string {
	return []string{DefaultLanguage, GermanMessages}
}

// getMessages returns the message map for a given language
func getMessages(language string) map[string]string {
	switch language {
	case DefaultLanguage:
		return englishMessages
	case GermanMessages:
		return germanMessages
	default:
		return englishMessages // Default to English
	}
}
