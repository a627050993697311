package automation

import "testing"

func TestRender(t *testing.T) {
	vars := TemplateVars{Name: "Jordan Miles", BusinessType: "roofing company", AgentName: "Alex"}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "all variables",
			template: "Hi {{name}}, this is {{agentName}} from the {{businessType}}.",
			want:     "Hi Jordan Miles, this is Alex from the roofing company.",
		},
		{
			name:     "inner whitespace tolerated",
			template: "Hi {{ name }}!",
			want:     "Hi Jordan Miles!",
		},
		{
			name:     "unknown variable renders empty",
			template: "Hi {{name}}, code {{discountCode}} applies.",
			want:     "Hi Jordan Miles, code  applies.",
		},
		{
			name:     "no placeholders",
			template: "Thanks for reaching out.",
			want:     "Thanks for reaching out.",
		},
		{
			name:     "repeated placeholder",
			template: "{{name}} {{name}}",
			want:     "Jordan Miles Jordan Miles",
		},
		{
			name:     "malformed braces left alone",
			template: "Hi {name} and {{name",
			want:     "Hi {name} and {{name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.template, vars); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderEmptyVars(t *testing.T) {
	got := Render("Hi {{name}}, {{agentName}} here.", TemplateVars{})
	if got != "Hi ,  here." {
		t.Errorf("Render() = %q", got)
	}
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name           string
		automationName string
		rendered       string
		want           string
	}{
		{"rule name wins", "Welcome Email", "Hello there\nMore text", "Welcome Email"},
		{"falls back to first line", "  ", "Hello there\nMore text", "Hello there"},
		{"single line body", "", "Just one line", "Just one line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Subject(tt.automationName, tt.rendered); got != tt.want {
				t.Errorf("Subject() = %q, want %q", got, tt.want)
			}
		})
	}
}
