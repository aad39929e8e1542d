package i18n

import (
	"reflect"
	"regexp"
	"strings"
	"testing"
)

var verbRegex = regexp.MustCompile(`%[a-z]`)

// The German catalog must carry every English key with the same verbs in the
// same order, since callers pass one argument list for both.
func TestCatalogsMatch(t *testing.T) {
	en := getMessages(DefaultLanguage)
	de := getMessages(GermanMessages)

	for key, message := range en {
		translated, ok := de[key]
		if !ok {
			t.Errorf("de is missing %q", key)
			continue
		}
		if want, got := verbRegex.FindAllString(message, -1), verbRegex.FindAllString(translated, -1); !reflect.DeepEqual(want, got) {
			t.Errorf("%q: de verbs %v, en verbs %v", key, got, want)
		}
	}
	for key := range de {
		if _, ok := en[key]; !ok {
			t.Errorf("de has %q which en lacks", key)
		}
	}
}

func TestKeyPrefixes(t *testing.T) {
	prefixes := []string{"error.", "queue.", "playback.", "library.", "device.", "auth."}

	for key := range getMessages(DefaultLanguage) {
		valid := false
		for _, prefix := range prefixes {
			if strings.HasPrefix(key, prefix) && len(key) > len(prefix) {
				valid = true
				break
			}
		}
		if !valid {
			t.Errorf("key %q has no known prefix", key)
		}
	}
}

func TestLocalizer_T(t *testing.T) {
	localizer := NewLocalizer(DefaultLanguage)

	if got := localizer.T("playback.track", "Bohemian Rhapsody", "Queen"); got != "Bohemian Rhapsody by Queen" {
		t.Errorf("T(playback.track) = %q", got)
	}
	if got := localizer.T("queue.moved", "Hey Jude", 2); got != "Moved Hey Jude to position 2." {
		t.Errorf("T(queue.moved) = %q", got)
	}
	if got := localizer.T("no.such.key"); got != "no.such.key" {
		t.Errorf("unknown key = %q, expected the key itself", got)
	}
	if got := NewLocalizer(GermanMessages).T("queue.moved", "Hey Jude", 2); got != "Hey Jude an Position 2 verschoben." {
		t.Errorf("de T(queue.moved) = %q", got)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		requested string
		expected  string
	}{
		{"", DefaultLanguage},
		{"en", DefaultLanguage},
		{"en-GB", DefaultLanguage},
		{"de", GermanMessages},
		{"de-AT", GermanMessages},
		{"de-CH", GermanMessages},
		{"ja", DefaultLanguage},
	}

	for _, tt := range tests {
		if got := Match(tt.requested); got != tt.expected {
			t.Errorf("Match(%q) = %q, expected %q", tt.requested, got, tt.expected)
		}
	}

	if got := NewLocalizer("de-DE").T("playback.paused"); got != "Pausiert" {
		t.Errorf("NewLocalizer(de-DE).T(playback.paused) = %q, expected %q", got, "Pausiert")
	}
}

func TestGetSupportedLanguages(t *testing.T) {
	if got := GetSupportedLanguages(); !reflect.DeepEqual(got, []string{DefaultLanguage, GermanMessages}) {
		t.Errorf("GetSupportedLanguages() = %v", got)
	}
}

func BenchmarkLocalizerWithArgs(b *testing.B) {
	localizer := NewLocalizer(DefaultLanguage)
	for i := 0; i < b.N; i++ {
		_ = localizer.T("playback.track", "Test Track", "Test Artist")
	}
}
