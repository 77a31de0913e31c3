package garage

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// AlwaysConfirm approves every prompt. The CLI uses it for --yes.
type AlwaysConfirm struct{}

func (AlwaysConfirm) Confirm(string) (bool, error) { return true, nil }

// confirm runs c and maps a refusal to ErrDeclined.
func confirm(c Confirmer, prompt string) error {
	if c == nil {
		return ErrDeclined
	}
	ok, err := c.Confirm(prompt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeclined
	}
	return nil
}
