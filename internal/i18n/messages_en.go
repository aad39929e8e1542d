package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Error messages
	"error.not_authenticated":  "Not connected to Spotify. Open the account settings and log in.",
	"error.no_active_device":   "No active Spotify device. Start Spotify on one of your devices and try again.",
	"error.unauthorized":       "Your Spotify session was renewed. Please try again.",
	"error.network":            "Could not reach Spotify. Check your connection and try again.",
	"error.generic":            "Something went wrong. Please try again.",
	"error.busy":               "Still working on earlier commands. Please wait.",
	"error.throttled":          "Too many requests. Please slow down.",
	"error.invalid_link":       "That is not a Spotify link.",
	"error.index_out_of_range": "There is no item at that position.",
	"error.nothing_playing":    "Nothing is playing.",
	"error.unsupported_item":   "This item cannot be added to the queue.",
	"error.link_unreadable":    "Could not read that link.",
	"error.link_not_found":     "Could not find %s on Spotify.",

	// Queue messages
	"queue.already_playing": "Already playing selected item.",
	"queue.empty":           "The queue is empty.",
	"queue.removed":         "Removed %s.",
	"queue.moved":           "Moved %s to position %d.",
	"queue.move_predicted":  "Moving %s to position %d.",
	"queue.reloaded":        "Move failed. Queue reloaded, %d items.",
	"queue.added":           "Added to queue.",

	// Playback messages
	"playback.track":          "%s by %s",
	"playback.episode":        "%s from %s",
	"playback.position":       "%s of %s",
	"playback.paused":         "Paused",
	"playback.resumed":        "Playing",
	"playback.next":           "Next",
	"playback.previous":       "Previous",
	"playback.volume":         "Volume %d percent",
	"playback.shuffle_on":     "Shuffle on",
	"playback.shuffle_off":    "Shuffle off",
	"playback.repeat_off":     "Repeat off",
	"playback.repeat_context": "Repeat all",
	"playback.repeat_track":   "Repeat one",
	"playback.started":        "Playing %s",

	// Library messages
	"library.saved":      "Saved to your library.",
	"library.unsaved":    "Removed from your library.",
	"library.no_results": "No results.",

	// Device messages
	"device.transferred": "Playing on %s.",
	"device.none":        "No devices found.",

	// Account messages
	"auth.connected":    "Connected as %s.",
	"auth.failed":       "Could not connect to Spotify.",
	"auth.cleared":      "Spotify credentials removed.",
	"auth.no_client_id": "Enter a Spotify client ID first.",
}
