package filecat

import (
	"errors"
	"testing"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		defaultNS string
		wantNS    string
		wantName  string
		wantErr   error
	}{
		{
			name:     "qualified",
			input:    "dune:raw_0001.root",
			wantNS:   "dune",
			wantName: "raw_0001.root",
		},
		{
			name:      "bare name uses default",
			input:     "raw_0001.root",
			defaultNS: "dune",
			wantNS:    "dune",
			wantName:  "raw_0001.root",
		},
		{
			name:      "empty namespace part uses default",
			input:     ":raw_0001.root",
			defaultNS: "dune",
			wantNS:    "dune",
			wantName:  "raw_0001.root",
		},
		{
			name:     "colon in name survives",
			input:    "dune:odd:name",
			wantNS:   "dune",
			wantName: "odd:name",
		},
		{
			name:    "bare name without default fails",
			input:   "raw_0001.root",
			wantErr: ErrInvalidName,
		},
		{
			name:    "empty namespace without default fails",
			input:   ":raw_0001.root",
			wantErr: ErrInvalidName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns, name, err := ParseName(tt.input, tt.defaultNS)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseName(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseName(%q) unexpected error: %v", tt.input, err)
			}
			if ns != tt.wantNS || name != tt.wantName {
				t.Errorf("ParseName(%q) = (%q, %q), want (%q, %q)",
					tt.input, ns, name, tt.wantNS, tt.wantName)
			}
		})
	}
}

func TestGenerateFileID(t *testing.T) {
	a := GenerateFileID()
	b := GenerateFileID()

	if len(a) != 32 {
		t.Errorf("GenerateFileID() length = %d, want 32", len(a))
	}
	for _, r := range a {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			t.Errorf("GenerateFileID() contains non-hex rune %q in %q", r, a)
			break
		}
	}
	if a == b {
		t.Errorf("GenerateFileID() returned the same id twice: %q", a)
	}
}
