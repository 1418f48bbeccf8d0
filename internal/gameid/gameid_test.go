package gameid

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "battle-1", false},
		{"underscores", "my_game_01", false},
		{"single char", "g", false},
		{"max length", strings.Repeat("a", MaxLen), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxLen+1), true},
		{"uppercase", "Battle", true},
		{"space", "battle 1", true},
		{"slash", "../escape", true},
		{"unicode", "gamé", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.id)
			if tc.wantErr && err == nil {
				t.Errorf("Validate(%q) should fail", tc.id)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Validate(%q) failed: %v", tc.id, err)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	id := Generate("battle")
	if err := Validate(id); err != nil {
		t.Fatalf("generated ID %q should validate: %v", id, err)
	}
	if !strings.HasPrefix(id, "battle-") {
		t.Errorf("expected battle- prefix, got %q", id)
	}

	if Generate("x") == Generate("x") {
		t.Errorf("consecutive IDs should differ")
	}
}

func TestGenerateLongPrefixTruncates(t *testing.T) {
	t.Parallel()

	id := Generate(strings.Repeat("z", 40))
	if len(id) > MaxLen {
		t.Errorf("generated ID exceeds %d bytes: %q", MaxLen, id)
	}
	if err := Validate(id); err != nil {
		t.Errorf("generated ID %q should validate: %v", id, err)
	}
}

func TestGenerateNoPrefix(t *testing.T) {
	t.Parallel()

	id := Generate("")
	if err := Validate(id); err != nil {
		t.Fatalf("generated ID %q should validate: %v", id, err)
	}
	if strings.HasPrefix(id, "-") {
		t.Errorf("empty prefix should not leave a leading dash: %q", id)
	}
}
