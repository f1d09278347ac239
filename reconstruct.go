package argschema

import (
	"errors"
)

// Reconstruct turns a parse result back into a typed instance: the flat values are regrouped by their first
// segment, each group is rebuilt into its nested structure using the selector recorded for its prefix, and the
// structure's constructor is invoked with the resulting values.
//
// Failures are internal-consistency errors of type *ReconstructionError, never user mistakes.
func Reconstruct(res *Result) (any, error) {
	if res == nil {
		return nil, &ReconstructionError{Path: RootKey, Cause: errors.New("nil result")}
	}
	return reconstruct(res.Values.Clone(), res.Selectors, RootKey)
}

// reconstruct builds the instance owning the given values, whose keys are relative to the given path.
func reconstruct(values FlatMap, selectors Selectors, at Key) (any, error) {
	schema, ok := selectors.Get(RootKey)
	if !ok || schema == nil {
		return nil, &ReconstructionError{Path: at, Cause: ErrMissingSelector}
	}

	// Unset values fall back to the constructor's own defaults
	for _, k := range values.Keys() {
		if v, _ := values.Get(k); IsUnset(v) {
			values.Delete(k)
		}
	}

	// Partition: direct values go to the constructor, deeper keys and selectors identify child groups
	kwargs := make(Values)
	var children []string
	isChild := make(map[string]bool)
	addChild := func(segment string) {
		if !isChild[segment] {
			isChild[segment] = true
			children = append(children, segment)
		}
	}
	for _, k := range values.Keys() {
		if k.Len() == 1 {
			v, _ := values.Get(k)
			kwargs[k.First()] = v
		} else if k.Len() > 1 {
			addChild(k.First())
		}
	}
	for _, k := range selectors.Keys() {
		if k.Len() == 1 {
			addChild(k.First())
		}
	}

	for _, child := range children {
		instance, err := reconstruct(values.Child(child), selectors.Child(child), at.Push(child))
		if err != nil {
			return nil, err
		}
		kwargs[child] = instance
	}

	// A variant resolved at this level under the empty segment is the result itself
	if instance, ok := kwargs[""]; ok && isChild[""] {
		return instance, nil
	}

	instance, err := schema.construct(kwargs)
	if err != nil {
		return nil, &ReconstructionError{Path: at, Cause: err}
	}
	return instance, nil
}
