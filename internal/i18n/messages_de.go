package i18n

// germanMessages contains all German translations.
var germanMessages = map[string]string{
	// Error messages
	"error.not_authenticated":  "Nicht mit Spotify verbunden. Bitte in den Kontoeinstellungen anmelden.",
	"error.no_active_device":   "Kein aktives Spotify-Gerät. Bitte Spotify auf einem Gerät starten und erneut versuchen.",
	"error.unauthorized":       "Die Spotify-Sitzung wurde erneuert. Bitte erneut versuchen.",
	"error.network":            "Spotify ist nicht erreichbar. Bitte Verbindung prüfen und erneut versuchen.",
	"error.generic":            "Etwas ist schiefgelaufen. Bitte erneut versuchen.",
	"error.busy":               "Frühere Befehle laufen noch. Bitte warten.",
	"error.throttled":          "Zu viele Anfragen. Bitte etwas langsamer.",
	"error.invalid_link":       "Das ist kein Spotify-Link.",
	"error.index_out_of_range": "An dieser Position gibt es keinen Eintrag.",
	"error.nothing_playing":    "Es wird nichts abgespielt.",
	"error.unsupported_item":   "Dieser Eintrag kann nicht zur Warteschlange hinzugefügt werden.",
	"error.link_unreadable":    "Dieser Link konnte nicht gelesen werden.",
	"error.link_not_found":     "%s wurde auf Spotify nicht gefunden.",

	// Queue messages
	"queue.already_playing": "Der gewählte Eintrag läuft bereits.",
	"queue.empty":           "Die Warteschlange ist leer.",
	"queue.removed":         "%s entfernt.",
	"queue.moved":           "%s an Position %d verschoben.",
	"queue.move_predicted":  "Verschiebe %s an Position %d.",
	"queue.reloaded":        "Verschieben fehlgeschlagen. Warteschlange neu geladen, %d Einträge.",
	"queue.added":           "Zur Warteschlange hinzugefügt.",

	// Playback messages
	"playback.track":          "%s von %s",
	"playback.episode":        "%s aus %s",
	"playback.position":       "%s von %s",
	"playback.paused":         "Pausiert",
	"playback.resumed":        "Wiedergabe",
	"playback.next":           "Weiter",
	"playback.previous":       "Zurück",
	"playback.volume":         "Lautstärke %d Prozent",
	"playback.shuffle_on":     "Zufallswiedergabe an",
	"playback.shuffle_off":    "Zufallswiedergabe aus",
	"playback.repeat_off":     "Wiederholen aus",
	"playback.repeat_context": "Alle wiederholen",
	"playback.repeat_track":   "Titel wiederholen",
	"playback.started":        "Spiele %s",

	// Library messages
	"library.saved":      "In der Bibliothek gespeichert.",
	"library.unsaved":    "Aus der Bibliothek entfernt.",
	"library.no_results": "Keine Ergebnisse.",

	// Device messages
	"device.transferred": "Wiedergabe auf %s.",
	"device.none":        "Keine Geräte gefunden.",

	// Account messages
	"auth.connected":    "Verbunden als %s.",
	"auth.failed":       "Verbindung zu Spotify fehlgeschlagen.",
	"auth.cleared":      "Spotify-Zugangsdaten entfernt.",
	"auth.no_client_id": "Bitte zuerst eine Spotify-Client-ID eingeben.",
}
