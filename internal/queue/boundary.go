package queue

import "accessify/internal/core"

// AutoplayBoundary trims the vendor queue to what the user actually queued.
// Once a context runs out Spotify pads the queue with autoplay material that
// restarts at the playing item, so:
//
//   - a queue made only of repeats of currentURI is empty;
//   - iteration stops where currentURI reappears after at least one distinct entry.
//
// The rule is inferred from observed vendor behavior, not documented.
func AutoplayBoundary(currentURI string, queue []core.QueueEntry) []core.QueueEntry {
	if currentURI == "" {
		return queue
	}

	allRepeats := true
	for i := range queue {
		if queue[i].URI != currentURI {
			allRepeats = false
			break
		}
	}
	if allRepeats {
		return nil
	}

	seenDistinct := false
	for i := range queue {
		if queue[i].URI != currentURI {
			seenDistinct = true
			continue
		}
		if seenDistinct {
			return queue[:i]
		}
	}
	return queue
}
