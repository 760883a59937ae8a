package redact

import "testing"

func TestTextParamExp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple var", "echo $SECRET", "echo $REDACTED"},
		{"braced var", "echo ${SECRET}", "echo ${REDACTED}"},
		{"safe var HOME", "cd $HOME", "cd $HOME"},
		{"safe var PATH", "echo $PATH", "echo $PATH"},
		{"special param $?", "echo $?", "echo $?"},
		{"special param $1", "echo $1", "echo $1"},
		{"mixed safe and sensitive", "curl -H $AUTH_TOKEN $HOME/file", "curl -H $REDACTED $HOME/file"},
		{"multiple sensitive", "echo $FOO $BAR", "echo $REDACTED $REDACTED"},
		{"shell session var", "my $HISTFILE is huge", "my $REDACTED is huge"},
		{"hostname", "logged into $HOSTNAME", "logged into $REDACTED"},
		{"prose", "I am writing to inform you", "I am writing to inform you"},
		{"prose keeps spacing", "see  you   then", "see  you   then"},
		{"empty string", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Text(tt.input)
			if got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextAssignment(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple assignment", "SECRET=hunter2 cmd", "SECRET=*** cmd"},
		{"export assignment", "export API_KEY=abc123", "export API_KEY=***"},
		{"safe var assignment", "HOME=/home/user cmd", "HOME=/home/user cmd"},
		{"assignment from var", "TOKEN=$OTHER cmd", "TOKEN=*** cmd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Text(tt.input)
			if got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextSingleQuotes(t *testing.T) {
	// $VAR inside single quotes is a literal, not an expansion.
	got := Text("echo '$SECRET'")
	if got != "echo '$SECRET'" {
		t.Errorf("single-quoted var should be preserved, got %q", got)
	}
}

func TestTextDoubleQuotes(t *testing.T) {
	got := Text(`echo "$SECRET"`)
	want := `echo "$REDACTED"`
	if got != want {
		t.Errorf("Text(echo \"$SECRET\") = %q, want %q", got, want)
	}
}

func TestTextUnbalancedQuoteFallsBack(t *testing.T) {
	got := Text("I'm sending $TOKEN")
	want := "I'm sending $REDACTED"
	if got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
}

func TestSplitRemapsCursor(t *testing.T) {
	text := "use $KEY now"
	cursor := len("use $KEY")
	got, gotCursor := Split(text, cursor)
	if got != "use $REDACTED now" {
		t.Errorf("Split text = %q", got)
	}
	if got[:gotCursor] != "use $REDACTED" {
		t.Errorf("Split cursor = %d, before = %q", gotCursor, got[:gotCursor])
	}
}

func TestSplitClampsCursor(t *testing.T) {
	got, cursor := Split("abc", 10)
	if got != "abc" || cursor != 3 {
		t.Errorf("Split(abc, 10) = %q, %d", got, cursor)
	}
}

func TestRegexRedactFallback(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"brace var", "echo ${SECRET}", "echo ${REDACTED}"},
		{"simple var", "echo $SECRET", "echo $REDACTED"},
		{"safe brace var", "echo ${HOME}", "echo ${HOME}"},
		{"safe simple var", "echo $HOME", "echo $HOME"},
		{"assignment", "SECRET=val", "SECRET=***"},
		{"safe assignment", "HOME=/home/user", "HOME=/home/user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := regexRedact(tt.input)
			if got != tt.want {
				t.Errorf("regexRedact(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
