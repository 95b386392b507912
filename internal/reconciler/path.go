package reconciler

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"
)

// classifyType derives the payload type from the shape of the remote
// storage path: the fetch service keeps payloads under a per-type
// directory, e.g. /data/api/videos/file_8 -> "videos".
func classifyType(remotePath string) string {
	t := path.Base(path.Dir(remotePath))
	if t == "." || t == "/" || t == "" {
		return "documents"
	}
	return t
}

// bucketLetter spreads payloads across 16 directories per type by the
// first hex character of the remote file id's digest, uppercased.
func bucketLetter(remoteFileID string) string {
	sum := md5.Sum([]byte(remoteFileID))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:1])
}

// relPath builds the relative destination path for a payload:
// {year}-{month}-{day}/{type}/{bucket}/{id}.{ext}. The message id keeps
// names unique and makes the path stable across retried moves.
func relPath(now time.Time, mediaType, remoteFileID string, messageID int64, ext string) string {
	return fmt.Sprintf("%s/%s/%s/%d.%s",
		now.Format("2006-01-02"), mediaType, bucketLetter(remoteFileID), messageID, ext)
}

// extFor picks the stored extension, falling back to the remote path's
// own suffix, then to a generic binary marker.
func extFor(recorded, remotePath string) string {
	if recorded != "" {
		return recorded
	}
	if e := strings.TrimPrefix(path.Ext(remotePath), "."); e != "" {
		return e
	}
	return "bin"
}
