// Package composite combines prognostics models. A Composite wires several
// models into a system-of-systems by connecting the output or state of one
// to the input of another; a MixtureOfExperts runs alternative models of the
// same system side by side and delegates to whichever tracks measurements
// best.
package composite

import (
	"fmt"
	"math"
	"strings"

	"github.com/ravi-mn/prognos/internal/prog"
)

// Component is a named model inside a composite. Continuous members need an
// Integrator; discrete-time members may leave it nil.
type Component struct {
	Name       string
	Model      prog.Model
	Integrator prog.Integrator
}

// Connection routes a source component's output or state to a target
// component's input. Both ends use "component.key" form.
type Connection struct {
	From string
	To   string
}

// Composite presents interconnected components as a single model. All keys
// are namespaced as "component.key".
type Composite struct {
	name       string
	components []Component

	// per target component: input key -> resolver against composite state
	wiring map[string][]wire
}

type wire struct {
	inputKey string
	source   Component
	srcKey   string
	isOutput bool
}

func splitKey(s string) (string, string, error) {
	i := strings.Index(s, ".")
	if i <= 0 || i == len(s)-1 {
		return "", "", fmt.Errorf("composite: key %q is not of the form component.key", s)
	}
	return s[:i], s[i+1:], nil
}

func NewComposite(name string, components []Component, connections []Connection) (*Composite, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("composite: at least one component required")
	}
	byName := make(map[string]Component, len(components))
	for _, c := range components {
		if c.Name == "" || strings.Contains(c.Name, ".") {
			return nil, fmt.Errorf("composite: invalid component name %q", c.Name)
		}
		if _, dup := byName[c.Name]; dup {
			return nil, fmt.Errorf("composite: duplicate component name %q", c.Name)
		}
		byName[c.Name] = c
	}

	wiring := make(map[string][]wire)
	for _, conn := range connections {
		srcName, srcKey, err := splitKey(conn.From)
		if err != nil {
			return nil, err
		}
		dstName, dstKey, err := splitKey(conn.To)
		if err != nil {
			return nil, err
		}
		src, ok := byName[srcName]
		if !ok {
			return nil, fmt.Errorf("composite: connection from unknown component %q", srcName)
		}
		dst, ok := byName[dstName]
		if !ok {
			return nil, fmt.Errorf("composite: connection to unknown component %q", dstName)
		}
		if !contains(dst.Model.Inputs(), dstKey) {
			return nil, fmt.Errorf("composite: %q is not an input of %q", dstKey, dstName)
		}
		w := wire{inputKey: dstKey, source: src, srcKey: srcKey}
		switch {
		case contains(src.Model.Outputs(), srcKey):
			w.isOutput = true
		case contains(src.Model.States(), srcKey):
		default:
			return nil, fmt.Errorf("composite: %q is neither output nor state of %q", srcKey, srcName)
		}
		wiring[dstName] = append(wiring[dstName], w)
	}

	return &Composite{name: name, components: components, wiring: wiring}, nil
}

func invalidMarker() float64 { return math.NaN() }

func contains(keys []string, k string) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}

func (c *Composite) Name() string { return c.name }

func (c *Composite) Inputs() []string {
	var keys []string
	for _, comp := range c.components {
		wired := c.wiring[comp.Name]
		for _, k := range comp.Model.Inputs() {
			if !isWired(wired, k) {
				keys = append(keys, comp.Name+"."+k)
			}
		}
	}
	return keys
}

func isWired(wires []wire, inputKey string) bool {
	for _, w := range wires {
		if w.inputKey == inputKey {
			return true
		}
	}
	return false
}

func (c *Composite) States() []string {
	var keys []string
	for _, comp := range c.components {
		for _, k := range comp.Model.States() {
			keys = append(keys, comp.Name+"."+k)
		}
	}
	return keys
}

func (c *Composite) Outputs() []string {
	var keys []string
	for _, comp := range c.components {
		for _, k := range comp.Model.Outputs() {
			keys = append(keys, comp.Name+"."+k)
		}
	}
	return keys
}

func (c *Composite) Events() []string {
	var keys []string
	for _, comp := range c.components {
		for _, k := range comp.Model.Events() {
			keys = append(keys, comp.Name+"."+k)
		}
	}
	return keys
}

func (c *Composite) InitialState() prog.State {
	x := make(prog.State)
	for _, comp := range c.components {
		for k, v := range comp.Model.InitialState() {
			x[comp.Name+"."+k] = v
		}
	}
	return x
}

// slice extracts one component's state from the composite state.
func slice(name string, m prog.Model, x prog.State) prog.State {
	xi := make(prog.State, len(m.States()))
	for _, k := range m.States() {
		xi[k] = x[name+"."+k]
	}
	return xi
}

// componentInput builds a component's input from the composite input plus
// its wired connections, resolved against the current composite state.
func (c *Composite) componentInput(comp Component, x prog.State, u prog.Input) prog.Input {
	ui := make(prog.Input, len(comp.Model.Inputs()))
	for _, k := range comp.Model.Inputs() {
		ui[k] = u[comp.Name+"."+k]
	}
	for _, w := range c.wiring[comp.Name] {
		src := slice(w.source.Name, w.source.Model, x)
		if w.isOutput {
			ui[w.inputKey] = w.source.Model.Output(src)[w.srcKey]
		} else {
			ui[w.inputKey] = src[w.srcKey]
		}
	}
	return ui
}

// NextState advances every component in declaration order. Connections read
// the already-updated state of components earlier in the order, so ordering
// components upstream-first keeps signal flow within a single step.
func (c *Composite) NextState(x prog.State, u prog.Input, dt float64) prog.State {
	next := x.Clone()
	for _, comp := range c.components {
		ui := c.componentInput(comp, next, u)
		xi, err := prog.Advance(comp.Model, comp.Integrator, slice(comp.Name, comp.Model, next), ui, 0, dt)
		if err != nil {
			// surface the failure through the state; the simulator's
			// validity check will stop the run
			return prog.State{comp.Name + ".invalid": invalidMarker()}
		}
		for k, v := range xi {
			next[comp.Name+"."+k] = v
		}
	}
	return next
}

func (c *Composite) Output(x prog.State) prog.Output {
	z := make(prog.Output)
	for _, comp := range c.components {
		xi := slice(comp.Name, comp.Model, x)
		for k, v := range comp.Model.Output(xi) {
			z[comp.Name+"."+k] = v
		}
	}
	return z
}

func (c *Composite) EventState(x prog.State) map[string]float64 {
	es := make(map[string]float64)
	for _, comp := range c.components {
		xi := slice(comp.Name, comp.Model, x)
		for k, v := range comp.Model.EventState(xi) {
			es[comp.Name+"."+k] = v
		}
	}
	return es
}

func (c *Composite) ThresholdMet(x prog.State) map[string]bool {
	met := make(map[string]bool)
	for _, comp := range c.components {
		xi := slice(comp.Name, comp.Model, x)
		for k, v := range prog.ThresholdsMet(comp.Model, xi) {
			met[comp.Name+"."+k] = v
		}
	}
	return met
}

func (c *Composite) StateLimits() map[string][2]float64 {
	lim := make(map[string][2]float64)
	for _, comp := range c.components {
		if sl, ok := comp.Model.(prog.StateLimiter); ok {
			for k, b := range sl.StateLimits() {
				lim[comp.Name+"."+k] = b
			}
		}
	}
	return lim
}
