package models

// File status values are persisted integers and must stay stable: rows
// written by older builds are still in flight when a new build starts.
const (
	// StatusWaiting marks a message whose payload has not been fetched yet.
	StatusWaiting = 0
	// StatusDownloading marks a message with an in-flight fetch.
	StatusDownloading = 1
	// StatusMoved marks a message whose payload sits in durable storage.
	StatusMoved = 2
	// StatusPosted marks a message consumed into Post/File rows. Terminal.
	StatusPosted = 3
	// StatusSkipped marks a message whose group carried neither content
	// nor media and was dropped without producing a Post. Terminal.
	StatusSkipped = 4
)

// StatusName returns a human-readable name for a file status value.
func StatusName(status int) string {
	switch status {
	case StatusWaiting:
		return "waiting"
	case StatusDownloading:
		return "downloading"
	case StatusMoved:
		return "moved"
	case StatusPosted:
		return "posted"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}
