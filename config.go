package machina

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/petrijr/machina/pkg/api"
)

// definitionFile is the serialized form of a Definition. Guards in files are
// named-method conditions only; the caller attaches the Target (and any
// actions) on the decoded Definition before building the machine.
type definitionFile struct {
	Name         string      `yaml:"name" mapstructure:"name"`
	Initial      string      `yaml:"initial" mapstructure:"initial"`
	DeferInitial bool        `yaml:"defer_initial" mapstructure:"defer_initial"`
	Terminal     []string    `yaml:"terminal" mapstructure:"terminal"`
	Events       []eventFile `yaml:"events" mapstructure:"events"`
}

type eventFile struct {
	Name        string           `yaml:"name" mapstructure:"name"`
	Transitions []transitionFile `yaml:"transitions" mapstructure:"transitions"`
}

type transitionFile struct {
	From   []string `yaml:"from" mapstructure:"from"`
	To     string   `yaml:"to" mapstructure:"to"`
	If     []string `yaml:"if" mapstructure:"if"`
	Unless []string `yaml:"unless" mapstructure:"unless"`
}

// LoadDefinition decodes a YAML machine definition from r.
func LoadDefinition(r io.Reader) (Definition, error) {
	var f definitionFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Definition{}, fmt.Errorf("machina: decode definition: %w", err)
	}
	return f.toDefinition()
}

// LoadDefinitionFile decodes a YAML machine definition from the named file.
func LoadDefinitionFile(path string) (Definition, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Definition{}, err
	}
	defer fh.Close()
	return LoadDefinition(fh)
}

// DefinitionFromMap decodes a machine definition from a generic map, as
// produced by configuration libraries that hand out map[string]any.
func DefinitionFromMap(m map[string]any) (Definition, error) {
	var f definitionFile
	if err := mapstructure.Decode(m, &f); err != nil {
		return Definition{}, fmt.Errorf("machina: decode definition map: %w", err)
	}
	return f.toDefinition()
}

func (f definitionFile) toDefinition() (Definition, error) {
	if f.Name == "" {
		return Definition{}, fmt.Errorf("machina: definition has no name")
	}

	def := Definition{
		Name:         f.Name,
		Initial:      State(f.Initial),
		DeferInitial: f.DeferInitial,
	}
	for _, s := range f.Terminal {
		def.Terminal = append(def.Terminal, State(s))
	}

	for _, e := range f.Events {
		if e.Name == "" {
			return Definition{}, fmt.Errorf("machina: definition %q has an unnamed event", f.Name)
		}
		ev := api.EventDef{Name: Event(e.Name)}
		for _, t := range e.Transitions {
			td := api.TransitionDef{To: State(t.To)}
			for _, s := range t.From {
				td.From = append(td.From, State(s))
			}
			for _, name := range t.If {
				td.Guards = append(td.Guards, api.IfMethod(name))
			}
			for _, name := range t.Unless {
				td.Guards = append(td.Guards, api.UnlessMethod(name))
			}
			ev.Transitions = append(ev.Transitions, td)
		}
		def.Events = append(def.Events, ev)
	}

	return def, nil
}
