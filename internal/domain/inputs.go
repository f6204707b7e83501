package domain

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// QuizInput carries the fields of a new quiz.
type QuizInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Thumbnail   *string `json:"thumbnail" validate:"omitempty,httpurl"`
	Public      bool    `json:"public"`
	Copyable    bool    `json:"copyable"`
	Random      bool    `json:"random"`
}

// QuizPatch edits a quiz. Nil fields keep their current value; an empty
// Description or Thumbnail clears it.
type QuizPatch struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Thumbnail   *string `json:"thumbnail" validate:"omitempty,len=0|httpurl"`
	Public      *bool   `json:"public"`
	Copyable    *bool   `json:"copyable"`
	Random      *bool   `json:"random"`
}

// QuestionInput carries the fields of a new question.
type QuestionInput struct {
	Text              string  `json:"text" validate:"required,max=256"`
	AnswerDescription *string `json:"answerDescription" validate:"omitempty,max=1000"`
	Thumbnail         *string `json:"thumbnail" validate:"omitempty,httpurl"`
}

// QuestionPatch edits a question. Nil fields keep their current value; an
// empty AnswerDescription or Thumbnail clears it.
type QuestionPatch struct {
	Text              *string `json:"text" validate:"omitempty,min=1,max=256"`
	AnswerDescription *string `json:"answerDescription" validate:"omitempty,max=1000"`
	Thumbnail         *string `json:"thumbnail" validate:"omitempty,len=0|httpurl"`
}

// AnswerInput carries the fields of a new answer.
type AnswerInput struct {
	Text      string `json:"text" validate:"required,max=100"`
	IsCorrect bool   `json:"isCorrect"`
}

// AnswerPatch edits an answer. Nil fields keep their current value.
type AnswerPatch struct {
	Text      *string `json:"text" validate:"omitempty,min=1,max=100"`
	IsCorrect *bool   `json:"isCorrect"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
			return IsHTTPURL(fl.Field().String())
		})
	})
	return validate
}

// IsHTTPURL reports whether raw is an absolute http or https URL with a host.
func IsHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Cleared maps the empty string of a patch field to an absent value.
func Cleared(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// Validate checks an input struct and converts the first failure into a *ValidationError.
func Validate(input any) error {
	err := validatorInstance().Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "input", Detail: err.Error()}
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Detail: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "httpurl", "len=0|httpurl":
		return fmt.Sprintf("%q is not an http(s) URL", fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
