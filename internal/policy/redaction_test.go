package policy

import (
	"reflect"
	"strings"
	"testing"
)

func TestRedactTranscript(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantKinds []string
		contains  []string
		absent    []string
	}{
		{
			name:      "plain speech",
			input:     "what is on my calendar today",
			wantKinds: nil,
			contains:  []string{"what is on my calendar today"},
		},
		{
			name:      "email",
			input:     "send it to sam@example.com please",
			wantKinds: []string{"email"},
			contains:  []string{"[email]"},
			absent:    []string{"sam@example.com"},
		},
		{
			name:      "card before phone",
			input:     "my card is 4242 4242 4242 4242",
			wantKinds: []string{"card"},
			contains:  []string{"[card]"},
			absent:    []string{"[phone]", "4242"},
		},
		{
			name:      "phone",
			input:     "call +1 (555) 123-9876 now",
			wantKinds: []string{"phone"},
			contains:  []string{"[phone]"},
		},
		{
			name:      "api key",
			input:     "the key is sk-abcdefghijklmnop1234",
			wantKinds: []string{"secret"},
			contains:  []string{"[secret]"},
			absent:    []string{"abcdefghijklmnop"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, kinds := RedactTranscript(tt.input)
			if !reflect.DeepEqual(kinds, tt.wantKinds) {
				t.Errorf("kinds = %v, want %v", kinds, tt.wantKinds)
			}
			for _, s := range tt.contains {
				if !strings.Contains(out, s) {
					t.Errorf("output %q missing %q", out, s)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(out, s) {
					t.Errorf("output %q should not contain %q", out, s)
				}
			}
		})
	}
}
