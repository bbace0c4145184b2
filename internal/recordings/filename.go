package recordings

import (
	"regexp"
	"strings"

	"bricks_crm_backend/platform/phone"
)

// Call recorder apps name files in a handful of shapes:
// "Robin_Avadi_9876543210.wav", "Call_9876543210_20240101.mp3",
// "Call_+91 98765-43210.m4a". The extractor pulls a phone candidate from any
// digit run and a name from the first token that is not a recorder label.

var (
	phoneRunPattern = regexp.MustCompile(`\+?\d[\d\s.\-]{8,}\d`)
	tokenSplit      = regexp.MustCompile(`[_\-\s()\[\]]+`)
	alphaToken      = regexp.MustCompile(`^[A-Za-z]+$`)
)

// Tokens recorder apps put in front of the number. Never a caller name.
var labelWords = map[string]bool{
	"call": true, "calls": true, "recording": true, "record": true,
	"rec": true, "audio": true, "voice": true, "ptt": true, "vn": true,
	"phone": true, "tel": true, "mobile": true, "incoming": true,
	"outgoing": true, "missed": true, "unknown": true, "new": true,
}

// ExtractFromFilename derives a normalized phone number and a caller name
// from a recording's filename. Either result may be empty; a filename with
// no recognizable pattern is a normal outcome, not an error.
func ExtractFromFilename(filename string) (phoneNumber, name string) {
	base := stripExtension(strings.TrimSpace(filename))
	if base == "" {
		return "", ""
	}

	for _, run := range phoneRunPattern.FindAllString(base, -1) {
		candidate := phone.Normalize(run)
		if phone.IsValidMobile(candidate) {
			phoneNumber = candidate
			break
		}
	}

	for _, token := range tokenSplit.Split(base, -1) {
		if len(token) < 2 || !alphaToken.MatchString(token) {
			continue
		}
		if labelWords[strings.ToLower(token)] {
			continue
		}
		name = token
		break
	}

	return phoneNumber, name
}

func stripExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx <= 0 {
		return filename
	}
	return filename[:idx]
}
