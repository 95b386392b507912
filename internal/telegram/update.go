package telegram

import (
	"encoding/json"
	"fmt"
	"mime"
	"path"
	"strconv"
	"strings"
)

// Update mirrors the pieces of a Telegram update the pipeline ingests.
type Update struct {
	UpdateID    int64       `json:"update_id"`
	Message     *RawMessage `json:"message"`
	ChannelPost *RawMessage `json:"channel_post"`
}

// RawMessage is the wire shape of an inbound message or channel post.
type RawMessage struct {
	MessageID    int64  `json:"message_id"`
	From         *Peer  `json:"from"`
	Chat         *Chat  `json:"chat"`
	Date         int64  `json:"date"`
	MediaGroupID string `json:"media_group_id"`
	Caption      string `json:"caption"`
	Text         string `json:"text"`

	Photo     []PhotoSize `json:"photo"`
	Video     *MediaFile  `json:"video"`
	Document  *MediaFile  `json:"document"`
	Audio     *MediaFile  `json:"audio"`
	Animation *MediaFile  `json:"animation"`
	Voice     *MediaFile  `json:"voice"`
}

// Peer identifies a sender.
type Peer struct {
	ID int64 `json:"id"`
}

// Chat identifies the source chat.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// PhotoSize is one rendition of a photo; Telegram sends several, smallest
// first.
type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileSize     int64  `json:"file_size"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// MediaFile covers video/document/audio/animation/voice payloads.
type MediaFile struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileSize     int64  `json:"file_size"`
	FileName     string `json:"file_name"`
	MimeType     string `json:"mime_type"`
}

// Inbound is a parsed, storage-ready view of one update.
type Inbound struct {
	UpdateID     int64
	SenderID     int64
	ChatID       int64
	Date         int64
	MediaGroupID int64
	Caption      string
	Text         string
	FileID       string
	FileUniqueID string
	FileSize     int64
	FileName     string
	Ext          string
	MimeType     string
	Raw          string
}

// HasMedia reports whether the update carries a downloadable payload.
func (in *Inbound) HasMedia() bool {
	return in.FileID != ""
}

// ParseUpdate extracts the ingestible content from raw update JSON.
// Updates with neither message nor channel post yield an error; media-less
// messages parse fine and are stored as text-only rows.
func ParseUpdate(raw []byte) (*Inbound, error) {
	var upd Update
	if err := json.Unmarshal(raw, &upd); err != nil {
		return nil, fmt.Errorf("telegram: parse update: %w", err)
	}

	msg := upd.Message
	if msg == nil {
		msg = upd.ChannelPost
	}
	if msg == nil {
		return nil, fmt.Errorf("telegram: update %d has no message", upd.UpdateID)
	}

	in := &Inbound{
		UpdateID: upd.UpdateID,
		Date:     msg.Date,
		Caption:  strings.TrimSpace(msg.Caption),
		Text:     strings.TrimSpace(msg.Text),
		Raw:      string(raw),
	}
	if msg.From != nil {
		in.SenderID = msg.From.ID
	}
	if msg.Chat != nil {
		in.ChatID = msg.Chat.ID
	}
	if msg.MediaGroupID != "" {
		id, err := strconv.ParseInt(msg.MediaGroupID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("telegram: parse media_group_id %q: %w", msg.MediaGroupID, err)
		}
		in.MediaGroupID = id
	}

	switch {
	case len(msg.Photo) > 0:
		// Largest rendition is last.
		p := msg.Photo[len(msg.Photo)-1]
		in.FileID = p.FileID
		in.FileUniqueID = p.FileUniqueID
		in.FileSize = p.FileSize
		in.Ext = "jpg"
		in.MimeType = "image/jpeg"
	case msg.Video != nil:
		applyMediaFile(in, msg.Video, "mp4")
	case msg.Animation != nil:
		applyMediaFile(in, msg.Animation, "mp4")
	case msg.Audio != nil:
		applyMediaFile(in, msg.Audio, "mp3")
	case msg.Voice != nil:
		applyMediaFile(in, msg.Voice, "oga")
	case msg.Document != nil:
		applyMediaFile(in, msg.Document, "bin")
	}

	return in, nil
}

func applyMediaFile(in *Inbound, f *MediaFile, fallbackExt string) {
	in.FileID = f.FileID
	in.FileUniqueID = f.FileUniqueID
	in.FileSize = f.FileSize
	in.FileName = f.FileName
	in.MimeType = f.MimeType
	in.Ext = extFor(f.FileName, f.MimeType, fallbackExt)
}

// extFor picks a file extension: the original file name wins, then the
// mime type, then the per-kind fallback.
func extFor(fileName, mimeType, fallback string) string {
	if ext := strings.TrimPrefix(path.Ext(fileName), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return fallback
}
