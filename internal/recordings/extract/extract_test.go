package extract

import "testing"

func TestExtractFullTranscription(t *testing.T) {
	transcription := "My name is Kumar. I am planning a residential house in Coimbatore. Please send a quotation."

	info := Extract(transcription, "9876543210")

	if info.Name != "Kumar" {
		t.Errorf("Name = %q, want Kumar", info.Name)
	}
	if info.LeadType != "Residential" {
		t.Errorf("LeadType = %q, want Residential", info.LeadType)
	}
	if info.Classification != "direct_customer" {
		t.Errorf("Classification = %q, want direct_customer", info.Classification)
	}
	if info.RequirementType != "residential_house" {
		t.Errorf("RequirementType = %q, want residential_house", info.RequirementType)
	}
	if info.SiteRegion != "Coimbatore" {
		t.Errorf("SiteRegion = %q, want Coimbatore", info.SiteRegion)
	}
	if info.SiteLocation != "Coimbatore" {
		t.Errorf("SiteLocation = %q, want Coimbatore", info.SiteLocation)
	}
	if info.NextAction != "Prepare quotation" {
		t.Errorf("NextAction = %q, want Prepare quotation", info.NextAction)
	}
	if info.Confidence != 100 {
		t.Errorf("Confidence = %d, want 100", info.Confidence)
	}
	if len(info.MissingFields) != 0 {
		t.Errorf("MissingFields = %v, want none", info.MissingFields)
	}
}

func TestExtractMissingFieldsOnlyNameAndContact(t *testing.T) {
	info := Extract("please send samples to the factory in salem", "")

	want := map[string]bool{"name": true, "contact": true}
	if len(info.MissingFields) != 2 {
		t.Fatalf("MissingFields = %v, want name and contact", info.MissingFields)
	}
	for _, f := range info.MissingFields {
		if !want[f] {
			t.Errorf("unexpected missing field %q", f)
		}
	}
}

func TestExtractEmptyTranscription(t *testing.T) {
	info := Extract("", "")

	// Classification always falls back to its default, so the count is 1 of 8.
	if info.Classification != "direct_customer" {
		t.Errorf("Classification = %q, want direct_customer", info.Classification)
	}
	if info.Confidence != 13 {
		t.Errorf("Confidence = %d, want 13", info.Confidence)
	}
}

func TestExtractNameSkipsStopwords(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"i am looking for bricks for my house", ""},
		{"i am looking for bricks, my name is priya", "Priya"},
		{"this is ravi from erode", "Ravi"},
		{"kumar speaking, call me back", "Kumar"},
		{"naan murugan, veedu kattanum", "Murugan"},
		{"we need two thousand bricks", ""},
	}

	for _, tc := range cases {
		got := ExtractName(tc.text)
		if got != tc.want {
			t.Errorf("ExtractName(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestMatchCategoryFirstBucketWins(t *testing.T) {
	// "shop" appears in both Commercial (lead_type) and commercial_building
	// (requirement_type); within lead_type the Commercial bucket is first.
	if got := MatchCategory("a shop near the house", CategoryLeadType); got != "Commercial" {
		t.Errorf("lead_type = %q, want Commercial", got)
	}
}

func TestMatchCategoryDefault(t *testing.T) {
	if got := MatchCategory("nothing relevant here", CategoryClassification); got != "direct_customer" {
		t.Errorf("classification default = %q, want direct_customer", got)
	}
	if got := MatchCategory("nothing relevant here", CategoryLeadType); got != "" {
		t.Errorf("lead_type default = %q, want empty", got)
	}
}

func TestMatchCategoryTransliterations(t *testing.T) {
	if got := MatchCategory("kovai pakkathula site irukku", CategorySiteRegion); got != "Coimbatore" {
		t.Errorf("site_region = %q, want Coimbatore", got)
	}
	if got := MatchCategory("veedu kattanum", CategoryLeadType); got != "Residential" {
		t.Errorf("lead_type = %q, want Residential", got)
	}
}

func TestConfidenceBounds(t *testing.T) {
	full := Extract("my name is kumar, residential house in avadi chennai, builder, send a quotation", "9876543210")
	if full.Confidence < 0 || full.Confidence > 100 {
		t.Errorf("confidence out of bounds: %d", full.Confidence)
	}

	empty := Extract("", "")
	if empty.Confidence < 0 || empty.Confidence > 100 {
		t.Errorf("confidence out of bounds: %d", empty.Confidence)
	}
}
