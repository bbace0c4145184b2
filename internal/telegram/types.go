package telegram

// Update is the envelope Telegram posts to the webhook endpoint.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is the subset of the Bot API message object the pipeline reads.
type Message struct {
	MessageID int64     `json:"message_id"`
	From      *User     `json:"from"`
	Chat      Chat      `json:"chat"`
	Date      int64     `json:"date"`
	Text      string    `json:"text"`
	Voice     *Voice    `json:"voice"`
	Audio     *Audio    `json:"audio"`
	Document  *Document `json:"document"`
}

// User identifies the sender of a message.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Voice is a voice note recorded in Telegram.
type Voice struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Duration     int    `json:"duration"`
	MimeType     string `json:"mime_type"`
	FileSize     int64  `json:"file_size"`
}

// Audio is an audio file sent as a music attachment.
type Audio struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Duration     int    `json:"duration"`
	FileName     string `json:"file_name"`
	MimeType     string `json:"mime_type"`
	FileSize     int64  `json:"file_size"`
}

// Document is a generic file attachment. Call recorder apps upload their
// recordings as documents, with the caller metadata in the file name.
type Document struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name"`
	MimeType     string `json:"mime_type"`
	FileSize     int64  `json:"file_size"`
}

// File is the Bot API getFile result used to build download URLs.
type File struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
}

// Attachment flattens whichever audio payload the message carries.
type Attachment struct {
	FileID   string
	FileName string
	FileSize int64
	MimeType string
}

// AudioAttachment returns the message's audio payload, if any. Voice notes
// carry no file name; audio and document attachments do.
func (m *Message) AudioAttachment() (Attachment, bool) {
	switch {
	case m == nil:
		return Attachment{}, false
	case m.Voice != nil:
		return Attachment{
			FileID:   m.Voice.FileID,
			FileSize: m.Voice.FileSize,
			MimeType: m.Voice.MimeType,
		}, true
	case m.Audio != nil:
		return Attachment{
			FileID:   m.Audio.FileID,
			FileName: m.Audio.FileName,
			FileSize: m.Audio.FileSize,
			MimeType: m.Audio.MimeType,
		}, true
	case m.Document != nil && isAudioMime(m.Document.MimeType):
		return Attachment{
			FileID:   m.Document.FileID,
			FileName: m.Document.FileName,
			FileSize: m.Document.FileSize,
			MimeType: m.Document.MimeType,
		}, true
	default:
		return Attachment{}, false
	}
}

func isAudioMime(mime string) bool {
	switch mime {
	case "audio/mpeg", "audio/mp4", "audio/ogg", "audio/wav", "audio/x-wav",
		"audio/amr", "audio/aac", "audio/3gpp", "application/octet-stream":
		return true
	default:
		return false
	}
}
