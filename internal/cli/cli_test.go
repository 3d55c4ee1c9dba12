package cli

import "testing"

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, a *Args)
	}{
		{
			name: "login",
			args: []string{"login", "-user", "alice", "-password", "secret"},
			check: func(t *testing.T, a *Args) {
				if a.Username != "alice" || a.Password != "secret" {
					t.Errorf("parsed = %+v", a)
				}
			},
		},
		{
			name:    "login without password",
			args:    []string{"login", "-user", "alice"},
			wantErr: true,
		},
		{
			name: "analyze with message",
			args: []string{"analyze", "-url", "example.com", "-message", "check this"},
			check: func(t *testing.T, a *Args) {
				if a.URL != "example.com" || a.Message != "check this" {
					t.Errorf("parsed = %+v", a)
				}
			},
		},
		{
			name:    "analyze without url",
			args:    []string{"analyze"},
			wantErr: true,
		},
		{
			name: "report by link with page",
			args: []string{"report", "-link", "9", "-page", "2"},
			check: func(t *testing.T, a *Args) {
				if a.LinkID != 9 || a.Page != 2 {
					t.Errorf("parsed = %+v", a)
				}
			},
		},
		{
			name:    "report with both id and link",
			args:    []string{"report", "-id", "1", "-link", "2"},
			wantErr: true,
		},
		{
			name: "report delete",
			args: []string{"report", "-delete", "7"},
			check: func(t *testing.T, a *Args) {
				if a.DeleteID != 7 {
					t.Errorf("parsed = %+v", a)
				}
			},
		},
		{
			name: "export history",
			args: []string{"export", "-history", "-out", "/tmp/reports"},
			check: func(t *testing.T, a *Args) {
				if !a.History || a.OutDir != "/tmp/reports" {
					t.Errorf("parsed = %+v", a)
				}
			},
		},
		{
			name:    "export without target",
			args:    []string{"export"},
			wantErr: true,
		},
		{
			name: "serve custom addr",
			args: []string{"serve", "-addr", ":9090"},
			check: func(t *testing.T, a *Args) {
				if a.Addr != ":9090" {
					t.Errorf("parsed = %+v", a)
				}
			},
		},
		{
			name: "verbose flag",
			args: []string{"logout", "-v"},
			check: func(t *testing.T, a *Args) {
				if !a.Verbose {
					t.Error("verbose not parsed")
				}
			},
		},
		{
			name:    "unknown command",
			args:    []string{"frobnicate"},
			wantErr: true,
		},
		{
			name:    "no command",
			args:    []string{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseArgs(%v) succeeded, want error", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseArgs(%v): %v", tt.args, err)
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}
