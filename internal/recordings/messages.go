package recordings

import (
	"fmt"
	"strings"

	"bricks_crm_backend/internal/recordings/extract"
)

// Outbound chat messages. Kept in one place so the conversational surface of
// the pipeline can be reviewed (and translated) without touching handlers.

const transcriptExcerptLen = 160

func msgPromptForPhone() string {
	return "Recording received, but I could not find a phone number in it.\n" +
		"Reply with:\nPHONE: <10-digit number>\n" +
		"You can add the caller's name too:\nPHONE: 9876543210 NAME: Kumar"
}

func msgPromptRename() string {
	return "I could not find a phone number in that file's name.\n" +
		"Please rename the file to include the caller's number " +
		"(for example Kumar_Avadi_9876543210.mp3) and send it again."
}

func msgDuplicate(fileName string) string {
	return fmt.Sprintf("This recording was already received (%s). Nothing new was saved.", fileName)
}

func msgConfirmNewLead(name, phoneNumber string) string {
	return fmt.Sprintf("Recording saved.\nNew lead created: %s (%s)\nTranscription is in progress.", name, phoneNumber)
}

func msgConfirmExistingLead(name, phoneNumber string) string {
	return fmt.Sprintf("Recording saved and linked to existing lead: %s (%s)\nTranscription is in progress.", name, phoneNumber)
}

func msgConfirmNoLead(phoneNumber string) string {
	return fmt.Sprintf("Recording saved for %s.\nNo matching lead found. "+
		"Once transcription completes you can reply NAME: <caller name> to create one.", phoneNumber)
}

func msgInvalidPhone(raw string) string {
	return fmt.Sprintf("%q is not a valid phone number. "+
		"Please send a 10-digit Indian mobile number, e.g. PHONE: 9876543210", strings.TrimSpace(raw))
}

func msgNoPendingRecording() string {
	return "There is no recording waiting for a phone number in this chat."
}

func msgNoPendingLead() string {
	return "There is no completed recording waiting for a lead name in this chat."
}

func msgPhoneStillPending() string {
	return "This recording has no phone number yet. Reply PHONE: <10-digit number> first."
}

func msgNameTooShort() string {
	return "The name must be at least 2 characters. Reply NAME: <caller name>."
}

func msgPhoneLinked(phoneNumber, leadName string, created bool) string {
	switch {
	case created:
		return fmt.Sprintf("Phone number %s saved.\nNew lead created: %s", phoneNumber, leadName)
	case leadName != "":
		return fmt.Sprintf("Phone number %s saved and linked to existing lead: %s", phoneNumber, leadName)
	default:
		return fmt.Sprintf("Phone number %s saved. No matching lead found yet; "+
			"reply NAME: <caller name> after transcription completes to create one.", phoneNumber)
	}
}

func msgProcessingFailed(errorMessage string) string {
	if errorMessage == "" {
		errorMessage = "unknown error"
	}
	return "Transcription failed for your recording: " + errorMessage
}

func msgCompletionNotice(leadName, phoneNumber, transcription string) string {
	return fmt.Sprintf("Transcription complete for %s (%s).\n\n\"%s\"",
		leadName, phoneNumber, excerpt(transcription))
}

func msgLeadCreated(leadName string, info extract.LeadInfo, transcription string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transcription complete. New lead created: %s\n", leadName)
	writeExtractedFields(&b, info)
	fmt.Fprintf(&b, "Confidence: %d%%\n\n\"%s\"", info.Confidence, excerpt(transcription))
	return b.String()
}

func msgMissingFields(info extract.LeadInfo, transcription string) string {
	var b strings.Builder
	b.WriteString("Transcription complete, but I could not create a lead yet.\n")
	writeExtractedFields(&b, info)
	fmt.Fprintf(&b, "Missing: %s\n", strings.Join(info.MissingFields, ", "))
	fmt.Fprintf(&b, "Confidence: %d%%\n", info.Confidence)
	b.WriteString("Reply NAME: <caller name> to create the lead.\n\n")
	fmt.Fprintf(&b, "\"%s\"", excerpt(transcription))
	return b.String()
}

func msgNameLeadCreated(leadName string, info extract.LeadInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lead created: %s\n", leadName)
	writeExtractedFields(&b, info)
	return b.String()
}

func writeExtractedFields(b *strings.Builder, info extract.LeadInfo) {
	fields := []struct{ label, value string }{
		{"Name", info.Name},
		{"Phone", info.Phone},
		{"Type", info.LeadType},
		{"Classification", info.Classification},
		{"Requirement", info.RequirementType},
		{"Region", info.SiteRegion},
		{"Location", info.SiteLocation},
		{"Next action", info.NextAction},
	}
	for _, f := range fields {
		if f.value != "" {
			fmt.Fprintf(b, "%s: %s\n", f.label, f.value)
		}
	}
}

func excerpt(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= transcriptExcerptLen {
		return text
	}
	return string(runes[:transcriptExcerptLen]) + "..."
}
