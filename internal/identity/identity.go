// Package identity reads and validates the three-line identity file (full
// name, email address, student ID) a submission carries.
package identity

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spboyer/bagcheck/internal/failures"
)

// LineCount is the exact number of lines an identity file must have.
const LineCount = 3

var (
	personNamePattern = regexp.MustCompile(`^[a-zA-Z ]+$`)
	studentIDPattern  = regexp.MustCompile(`^[0-9]{10}$`)
)

// Identity is the parsed content of an identity file.
type Identity struct {
	Name  string `validate:"personname"`
	Email string `validate:"email"`
	ID    string `validate:"studentid"`
}

// Field names one line of the identity file.
type Field string

const (
	FieldName  Field = "Name"
	FieldEmail Field = "Email"
	FieldID    Field = "ID"
)

// Reader reads identity files from disk.
type Reader struct{}

// ReadLines returns the trimmed lines of the file at path. A missing file is a
// [failures.KindNotFound] failure; anything other than exactly [LineCount]
// lines is [failures.KindMalformed].
func (Reader) ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, failures.New("reading "+path, failures.KindNotFound, err)
		}
		return nil, failures.New("reading "+path, failures.KindUnknown, err)
	}
	return SplitLines(string(data))
}

// SplitLines splits content into trimmed lines and checks the line count. A
// single trailing newline doesn't count as an extra line.
func SplitLines(content string) ([]string, error) {
	content = strings.TrimSuffix(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	lines := strings.Split(content, "\n")
	if len(lines) != LineCount {
		return nil, failures.New("parsing identity file", failures.KindMalformed,
			fmt.Errorf("found %d lines, expected %d (name, email, student ID)", len(lines), LineCount))
	}
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines, nil
}

// FromLines builds an Identity from the output of [Reader.ReadLines].
func FromLines(lines []string) (*Identity, error) {
	if len(lines) != LineCount {
		return nil, failures.New("parsing identity file", failures.KindMalformed,
			fmt.Errorf("found %d lines, expected %d", len(lines), LineCount))
	}
	return &Identity{Name: lines[0], Email: lines[1], ID: lines[2]}, nil
}

// Validator checks identity fields.
type Validator struct {
	v *validator.Validate
}

// NewValidator registers the person name and student ID rules alongside the
// built-in email rule.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// patterns are compile-time constants, registration can't fail
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("studentid", func(fl validator.FieldLevel) bool {
		return studentIDPattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Check validates every field independently and returns the verdict per field.
func (iv *Validator) Check(id *Identity) map[Field]bool {
	result := map[Field]bool{FieldName: true, FieldEmail: true, FieldID: true}

	err := iv.v.Struct(id)
	if err == nil {
		return result
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[Field]bool{FieldName: false, FieldEmail: false, FieldID: false}
	}
	for _, fe := range verrs {
		result[Field(fe.StructField())] = false
	}
	return result
}
