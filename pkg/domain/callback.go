package domain

import (
	"fmt"
	"strings"
)

// CallbackType identifies the kind of input requested from the end user.
type CallbackType string

const (
	CallbackName         CallbackType = "NameCallback"
	CallbackPassword     CallbackType = "PasswordCallback"
	CallbackChoice       CallbackType = "ChoiceCallback"
	CallbackConfirmation CallbackType = "ConfirmationCallback"
	CallbackTextOutput   CallbackType = "TextOutputCallback"
	CallbackHiddenValue  CallbackType = "HiddenValueCallback"
)

// Callback is a request for end-user input. The same structure travels back with
// Value filled in once the user has answered.
type Callback struct {
	Type         CallbackType `json:"type"`
	ID           string       `json:"id,omitempty"`
	Prompt       string       `json:"prompt,omitempty"`
	Message      string       `json:"message,omitempty"`
	Choices      []string     `json:"choices,omitempty"`
	DefaultIndex int          `json:"default_index,omitempty"`
	Value        any          `json:"value,omitempty"`
}

// NameCallback asks for a visible text value.
func NameCallback(prompt string) Callback {
	return Callback{Type: CallbackName, Prompt: prompt}
}

// PasswordCallback asks for a hidden text value.
func PasswordCallback(prompt string) Callback {
	return Callback{Type: CallbackPassword, Prompt: prompt}
}

// ChoiceCallback asks the user to pick one of choices. The answer is the index.
func ChoiceCallback(prompt string, choices []string, defaultIndex int) Callback {
	return Callback{
		Type:         CallbackChoice,
		Prompt:       prompt,
		Choices:      append([]string(nil), choices...),
		DefaultIndex: defaultIndex,
	}
}

// ConfirmationCallback asks a yes/no question. The answer is a boolean or y/n string.
func ConfirmationCallback(prompt string) Callback {
	return Callback{Type: CallbackConfirmation, Prompt: prompt}
}

// TextOutputCallback shows a message; it carries no answer.
func TextOutputCallback(message string) Callback {
	return Callback{Type: CallbackTextOutput, Message: message}
}

// HiddenValueCallback carries a value the client must echo back untouched.
func HiddenValueCallback(id string, value any) Callback {
	return Callback{Type: CallbackHiddenValue, ID: id, Value: value}
}

// StringValue returns the answer as a string.
func (c Callback) StringValue() (string, bool) {
	switch v := c.Value.(type) {
	case string:
		return v, true
	case nil:
		return "", false
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// IntValue returns the answer as an int (choice indexes).
func (c Callback) IntValue() (int, bool) {
	return AsInt(c.Value)
}

// BoolValue returns the answer of a confirmation callback.
func (c Callback) BoolValue() (bool, bool) {
	switch v := c.Value.(type) {
	case bool:
		return v, true
	case string:
		clean := strings.ToLower(strings.TrimSpace(v))
		switch clean {
		case "y", "yes", "true", "1":
			return true, true
		case "n", "no", "false", "0":
			return false, true
		}
	}
	return false, false
}

// FindCallback returns the first callback of type t.
func FindCallback(callbacks []Callback, t CallbackType) (Callback, bool) {
	for _, cb := range callbacks {
		if cb.Type == t {
			return cb, true
		}
	}
	return Callback{}, false
}
