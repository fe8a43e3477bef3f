package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellEscape(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", "''"},
		{"plain package", "openjdk-7-jdk", "openjdk-7-jdk"},
		{"path with spaces", "/opt/umake/misc/dr java", "'/opt/umake/misc/dr java'"},
		{"single quote", "it's", `'it'"'"'s'`},
		{"dollar", "$HOME/apps", "'$HOME/apps'"},
		{"percent code", "%f", "'%f'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShellEscape(tt.input))
		})
	}
}

func TestShellEscapeCommand(t *testing.T) {
	got := ShellEscapeCommand("sudo", "apt-get", "install", "-y", "openjdk-7-jdk")
	assert.Equal(t, "sudo apt-get install -y openjdk-7-jdk", got)

	got = ShellEscapeCommand("java", "-jar", "/home/me/my apps/drjava.jar")
	assert.Equal(t, "java -jar '/home/me/my apps/drjava.jar'", got)
}

func TestQuoteExecArg(t *testing.T) {
	assert.Equal(t, `"/opt/Popcorn-Time"`, QuoteExecArg("/opt/Popcorn-Time"))
	assert.Equal(t, `"/home/a b/processing"`, QuoteExecArg("/home/a b/processing"))
	assert.Equal(t, `"/tmp/\$x/\"q\"/\\"`, QuoteExecArg(`/tmp/$x/"q"/\`))
}
