package testutil

import (
	"fmt"
	"sync"

	"garage-go/internal/garage"
)

// ScriptedConfirmer answers prompts from a fixed script and records every
// prompt it was shown. Once the script runs out it keeps returning the last
// answer; an empty script refuses everything.
type ScriptedConfirmer struct {
	mu      sync.Mutex
	answers []bool
	err     error
	Prompts []string
}

// Confirming returns a confirmer that approves every prompt.
func Confirming() *ScriptedConfirmer { return &ScriptedConfirmer{answers: []bool{true}} }

// Declining returns a confirmer that refuses every prompt.
func Declining() *ScriptedConfirmer { return &ScriptedConfirmer{answers: []bool{false}} }

// NewScriptedConfirmer answers prompts in order.
func NewScriptedConfirmer(answers ...bool) *ScriptedConfirmer {
	return &ScriptedConfirmer{answers: answers}
}

// FailWith makes every later prompt return err.
func (c *ScriptedConfirmer) FailWith(err error) *ScriptedConfirmer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
	return c
}

func (c *ScriptedConfirmer) Confirm(prompt string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Prompts = append(c.Prompts, prompt)
	if c.err != nil {
		return false, fmt.Errorf("prompt %q: %w", prompt, c.err)
	}
	if len(c.answers) == 0 {
		return false, nil
	}
	answer := c.answers[0]
	if len(c.answers) > 1 {
		c.answers = c.answers[1:]
	}
	return answer, nil
}

var _ garage.Confirmer = (*ScriptedConfirmer)(nil)
