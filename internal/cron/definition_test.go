package cron

import "testing"

func TestParseDefinitionFillsDefaults(t *testing.T) {
	def, err := ParseDefinition("daily-digest", []byte(`{"cron_expression":"0 9 * * *","title":"Daily digest"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if def.Slug != "daily-digest" {
		t.Fatalf("expected slug to be set from discovery path, got %q", def.Slug)
	}
	if def.Type != TypeAgent {
		t.Fatalf("expected default type agent, got %q", def.Type)
	}
	if def.DeliveryMode != DeliveryChannel {
		t.Fatalf("expected default delivery mode channel, got %q", def.DeliveryMode)
	}
	if def.Timezone != "UTC" {
		t.Fatalf("expected default timezone UTC, got %q", def.Timezone)
	}
}

func TestParseDefinitionPreservesExplicitFields(t *testing.T) {
	raw := `{"cron_expression":"*/5 * * * *","type":"script","delivery_mode":"dm","timezone":"America/New_York","max_retries":2,"max_runs":10,"notify_on_failure":true}`
	def, err := ParseDefinition("sync", []byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if def.Type != TypeScript || def.DeliveryMode != DeliveryDM || def.Timezone != "America/New_York" {
		t.Fatalf("expected explicit fields preserved, got %+v", def)
	}
	if def.MaxRetries != 2 || def.MaxRuns != 10 || !def.NotifyOnFailure {
		t.Fatalf("expected retry/run/notify fields preserved, got %+v", def)
	}
}

func TestParseDefinitionRejectsInvalidJSON(t *testing.T) {
	if _, err := ParseDefinition("bad", []byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
