package phpast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChildren(t *testing.T) {
	leaf := &Exit{Line: 3}
	body := []Statement{leaf}

	tests := []struct {
		name string
		stmt Statement
		want []Statement
	}{
		{"namespace", &Namespace{Body: body}, body},
		{"if", &If{Body: body}, body},
		{"class", &Class{Body: body}, body},
		{"interface", &Interface{Body: body}, body},
		{"other", &Other{Kind: "function_definition", Body: body}, body},
		{"use", &Use{Names: []string{"Foo"}}, nil},
		{"exit", leaf, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Children(tt.stmt))
		})
	}
}

func TestParseError_Error(t *testing.T) {
	assert.Equal(t, "Syntax error, unexpected '}' on line 4",
		(&ParseError{Message: "Syntax error, unexpected '}'", Line: 4}).Error())
	assert.Equal(t, "empty input", (&ParseError{Message: "empty input"}).Error())
}

func TestFile_FirstLine(t *testing.T) {
	var nilFile *File
	assert.Zero(t, nilFile.FirstLine())
	assert.Zero(t, (&File{}).FirstLine())
	assert.Equal(t, 5, (&File{Statements: []Statement{&Use{Line: 5}, &Exit{Line: 9}}}).FirstLine())
}
