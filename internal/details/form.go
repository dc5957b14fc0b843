package details

import (
	"context"
	"fmt"

	"onboarding-service/internal/choice"
)

// Bindings connect the form to state owned by its caller: the current
// values and one setter per field.
type Bindings struct {
	Values      Values
	SetName     func(string)
	SetAge      func(string)
	SetGender   func(Gender)
	SetLocation func(string)
}

// Form is a stateless view over Bindings. Every edit goes straight to the
// matching setter. Continue is always available; it runs the caller's
// callback and nothing else.
type Form struct {
	b          Bindings
	onContinue func(context.Context) error
}

// NewForm builds a form over b. onContinue may be nil.
func NewForm(b Bindings, onContinue func(context.Context) error) *Form {
	return &Form{b: b, onContinue: onContinue}
}

func (f *Form) genders() *choice.Group[Gender] {
	g := choice.New(false, GenderOptions...)
	if f.b.Values.Gender != "" {
		_ = g.Select(f.b.Values.Gender)
	}
	return g
}

// Edit forwards value to the setter for field. Gender values outside the
// fixed set are rejected.
func (f *Form) Edit(field Field, value string) error {
	switch field {
	case FieldName:
		call(f.b.SetName, value)
	case FieldAge:
		call(f.b.SetAge, value)
	case FieldLocation:
		call(f.b.SetLocation, value)
	case FieldGender:
		g := f.genders()
		if err := g.Select(Gender(value)); err != nil {
			return err
		}
		if f.b.SetGender != nil {
			f.b.SetGender(Gender(value))
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func call(set func(string), v string) {
	if set != nil {
		set(v)
	}
}

// Continue runs the continuation callback.
func (f *Form) Continue(ctx context.Context) error {
	if f.onContinue == nil {
		return nil
	}
	return f.onContinue(ctx)
}

// View renders the bound values.
func (f *Form) View() *FormView {
	g := f.genders()
	v := &FormView{
		Name:        f.b.Values.Name,
		Age:         f.b.Values.Age,
		Location:    f.b.Values.Location,
		CanContinue: g.CanContinue(),
	}
	for _, c := range g.Cards() {
		v.Genders = append(v.Genders, GenderCard{ID: string(c.ID), Label: c.Label, Active: c.Active})
	}
	if sel, ok := g.Selected(); ok {
		v.Gender = string(sel)
	}
	return v
}
