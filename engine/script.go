package engine

import (
	"os"

	"gopkg.in/yaml.v3"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// Scripted classes are defined in YAML: a list of classes, each with a
// method table whose values are literals converted to guest values.
//
//	classes:
//	  - name: Point
//	    methods:
//	      x: 1
//	      y: 2
//	  - name: Widget
//	    methods:
//	      label: knob
//	      kind: !sym dial
//	      size: {w: 10, h: 20}
//
// The !sym tag produces a symbol; everything else follows YAML's own typing.

type classFile struct {
	Classes []classDef `yaml:"classes"`
}

type classDef struct {
	Name    string               `yaml:"name"`
	Methods map[string]yaml.Node `yaml:"methods"`
}

// LoadClasses reads a YAML class definition file and registers its classes.
func (rt *Runtime) LoadClasses(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err)
	}
	return errors.Ctx(rt.ParseClasses(data), "loading classes from %s", path)
}

// ParseClasses registers the classes defined in a YAML document.
func (rt *Runtime) ParseClasses(data []byte) error {
	var file classFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return errors.Ctx(err, "parsing class definitions")
	}
	for _, def := range file.Classes {
		if def.Name == "" {
			return errors.New("class definition missing a name")
		}
		methods := make(map[string]scriptbridge.Object, len(def.Methods))
		for name, node := range def.Methods {
			obj, err := rt.fromNode(&node)
			if err != nil {
				return errors.Ctx(err, "method '%s' of class '%s'", name, def.Name)
			}
			methods[name] = obj
		}
		rt.Define(NewClass(def.Name, methods))
	}
	return nil
}

func (rt *Runtime) fromNode(n *yaml.Node) (scriptbridge.Object, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 1 {
			return rt.fromNode(n.Content[0])
		}
		return theNil, nil
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			return theNil, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, errors.Wrap(err)
			}
			return boolValue(b), nil
		case "!!int":
			var i int64
			if err := n.Decode(&i); err != nil {
				return nil, errors.Wrap(err)
			}
			return intValue(i), nil
		case "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return nil, errors.Wrap(err)
			}
			return floatValue(f), nil
		case "!sym":
			return symValue(n.Value), nil
		default:
			return strValue(n.Value), nil
		}
	case yaml.SequenceNode:
		arr := &arrayValue{}
		for _, c := range n.Content {
			obj, err := rt.fromNode(c)
			if err != nil {
				return nil, err
			}
			arr.items = append(arr.items, obj)
		}
		return arr, nil
	case yaml.MappingNode:
		h := newHash()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := rt.fromNode(n.Content[i])
			if err != nil {
				return nil, err
			}
			value, err := rt.fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			if err := h.Store(key, value); err != nil {
				return nil, err
			}
		}
		return h, nil
	case yaml.AliasNode:
		return rt.fromNode(n.Alias)
	}
	return nil, errors.Newf("unsupported YAML node kind %d", n.Kind)
}
