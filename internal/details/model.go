package details

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"onboarding-service/internal/choice"
)

// Gender is one of a fixed set of values.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// GenderOptions in display order.
var GenderOptions = []choice.Option[Gender]{
	{ID: GenderMale, Label: "Male"},
	{ID: GenderFemale, Label: "Female"},
	{ID: GenderOther, Label: "Other"},
}

// Field names a form input.
type Field string

const (
	FieldName     Field = "name"
	FieldAge      Field = "age"
	FieldGender   Field = "gender"
	FieldLocation Field = "location"
)

// AllFields in display order.
var AllFields = []Field{FieldName, FieldAge, FieldGender, FieldLocation}

// ErrUnknownField is returned by Edit for a field the form does not have.
var ErrUnknownField = errors.New("unknown field")

// User-visible messages.
const (
	MsgSaveFailed   = "Something went wrong while saving your details. Please try again."
	MsgInProgress   = "Your details are already being saved."
	MsgIncomplete   = "Please fix the highlighted fields."
	MsgInvalidValue = "That value isn't one of the choices. Please try again."
)

// ErrContinueInProgress is returned when a previous continue for the same
// user has not finished.
var ErrContinueInProgress = errors.New("details save already in progress")

// PersistenceError wraps a failed profile save.
type PersistenceError struct{ Err error }

func (e *PersistenceError) Error() string { return "saving details: " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// FieldErrors maps each invalid field to a message.
type FieldErrors map[Field]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return fmt.Sprintf("invalid fields: %s", strings.Join(keys, ", "))
}

// Values are the current contents of the form.
type Values struct {
	Name     string
	Age      string
	Gender   Gender
	Location string
}

// GenderCard is one gender choice as rendered.
type GenderCard struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// FormView is the full state of the details screen.
type FormView struct {
	Name        string            `json:"name"`
	Age         string            `json:"age"`
	Location    string            `json:"location"`
	Genders     []GenderCard      `json:"genders"`
	Gender      string            `json:"gender,omitempty"`
	CanContinue bool              `json:"can_continue"`
	Message     string            `json:"message,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// EditRequest is the body for POST /onboarding/details/edit.
type EditRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ContinueResponse is returned to JSON clients after a successful continue.
type ContinueResponse struct {
	Next string `json:"next"`
	Path string `json:"path"`
}
