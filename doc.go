package modelkit

// Package modelkit provides:
//
// - Reusable field descriptors (default, validator, mutator, nullable) with typed scalar coercion
// - Collections (List/SetOf/Dict) that validate every element through an inner descriptor
// - Embedded objects built from mappings, with nested failures reported as field paths
// - Class registries merged across inheritance, and instances with New/Update/Validate/ToJSON
// - A single ValidationError (code, field path, message) for every runtime failure
//
// Design policy:
// - Keep only public APIs in the root package; boundary consumers live next to it
//   (codec/, jsonschema/, openapi/, kubeopenapi/, render/, sqlgen/, lazy/, middleware/) and use
//   only the exported registry API.
// - Registries are immutable after Build; instances are plain value holders.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	engine := modelkit.NewClass("Engine").
//	    Field("cylinders", modelkit.Integer(modelkit.WithDefault(4))).
//	    MustBuild()
//	car := modelkit.NewClass("Car").
//	    Field("name", modelkit.String(modelkit.NotNull(), modelkit.WithDefault(""))).
//	    Field("engine", modelkit.Embedded(engine)).
//	    Field("parts", modelkit.List(modelkit.Values(modelkit.String()))).
//	    MustBuild()
//
//	c, err := car.New(map[string]any{"name": "civic", "engine": map[string]any{"cylinders": 6}})
//	err = c.Validate()
//	out := c.ToJSON()
