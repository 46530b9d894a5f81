/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"sort"
	"strings"
)

// ParamSpec represents data about a model parameter.
//
// A parameter is just an initial binding for the boot production.
// The binding's variable is the parameter name with a leading "?".
type ParamSpec struct {

	// Doc describes the parameter in English and Markdown.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Default is used when a value is not given.
	Default string `json:"default,omitempty" yaml:"default,omitempty"`

	// Optional means that the parameter is not required.  An
	// optional parameter without a default is simply left
	// unbound.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`

	// OneOf, if not empty, is the closed set of allowed values.
	OneOf []string `json:"oneOf,omitempty" yaml:"oneOf,omitempty"`
}

// ValueCompliesWith checks that the given value complies with the
// spec. Returns an error if not.
func (s *ParamSpec) ValueCompliesWith(name, x string) error {
	if x == "" {
		return &BadParam{Param: name, Problem: "empty value"}
	}
	if len(s.OneOf) == 0 {
		return nil
	}
	for _, y := range s.OneOf {
		if x == y {
			return nil
		}
	}
	return &BadParam{
		Param:   name,
		Problem: "value " + x + " not one of " + strings.Join(s.OneOf, ","),
	}
}

// ParamVar returns the variable bound by the named parameter.
func ParamVar(name string) string {
	if strings.HasPrefix(name, "?") {
		return name
	}
	return "?" + name
}

// ResolveParams checks the given parameter values against the specs
// and returns the initial bindings for the boot production.
//
// Keys in the given map can be written with or without the leading
// "?".
func ResolveParams(specs map[string]*ParamSpec, given map[string]string) (Bindings, error) {
	bs := NewBindings()

	for name := range given {
		if _, have := specs[Unquestion(name)]; !have {
			return nil, &BadParam{Param: name, Problem: "undeclared"}
		}
	}

	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := specs[name]
		if spec == nil {
			spec = &ParamSpec{}
		}
		x, have := given[name]
		if !have {
			x, have = given[ParamVar(name)]
		}
		if !have {
			if spec.Default == "" {
				if spec.Optional {
					continue
				}
				return nil, &BadParam{Param: name, Problem: "required"}
			}
			x = spec.Default
		}
		if err := spec.ValueCompliesWith(name, x); err != nil {
			return nil, err
		}
		bs[ParamVar(name)] = x
	}

	return bs, nil
}
