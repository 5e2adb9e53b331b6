package config

import "testing"

func TestAIConfig_ValidateProviders(t *testing.T) {
	t.Parallel()

	c := validAI()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	dup := validAI()
	dup.Providers[1].ID = "anthropic"
	if err := dup.Validate(); err == nil {
		t.Fatalf("expected validation error for duplicate provider id")
	}

	badType := validAI()
	badType.Providers[0].Type = "gemini"
	if err := badType.Validate(); err == nil {
		t.Fatalf("expected validation error for invalid provider type")
	}

	badURL := validAI()
	badURL.Providers[0].BaseURL = "ftp://example.com"
	if err := badURL.Validate(); err == nil {
		t.Fatalf("expected validation error for invalid base_url scheme")
	}

	noModels := validAI()
	noModels.Providers[1].Models = nil
	if err := noModels.Validate(); err == nil {
		t.Fatalf("expected validation error for provider without models")
	}
}

func TestAIConfig_DefaultModel(t *testing.T) {
	t.Parallel()

	c := validAI()
	id, ok := c.DefaultModelID()
	if !ok || id != "anthropic/claude-sonnet-4-20250514" {
		t.Fatalf("DefaultModelID=%q/%v", id, ok)
	}

	none := validAI()
	none.Providers[0].Models[0].IsDefault = false
	if err := none.Validate(); err == nil {
		t.Fatalf("expected validation error for missing default model")
	}

	two := validAI()
	two.Providers[1].Models[0].IsDefault = true
	if err := two.Validate(); err == nil {
		t.Fatalf("expected validation error for multiple default models")
	}
}

func TestAIConfig_IsAllowedModelID(t *testing.T) {
	t.Parallel()

	c := validAI()
	if !c.IsAllowedModelID("openai/gpt-4o") {
		t.Fatalf("expected openai/gpt-4o to be allowed")
	}
	for _, bad := range []string{"", "openai", "openai/", "/gpt-4o", "openai/gpt-5", "gemini/pro"} {
		if c.IsAllowedModelID(bad) {
			t.Fatalf("model id %q unexpectedly allowed", bad)
		}
	}
}

func TestAIConfig_EffectiveMaxToolRounds(t *testing.T) {
	t.Parallel()

	c := validAI()
	if got := c.EffectiveMaxToolRounds(); got != 10 {
		t.Fatalf("default max tool rounds=%d, want 10", got)
	}
	five := 5
	c.MaxToolRounds = &five
	if got := c.EffectiveMaxToolRounds(); got != 5 {
		t.Fatalf("max tool rounds=%d, want 5", got)
	}
	big := 64
	c.MaxToolRounds = &big
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error for out-of-range max_tool_rounds")
	}
}
