// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Toggles holds one boolean per capability. The key set is fixed: decoding
// ignores unknown keys and encoding always writes every capability.
type Toggles struct {
	flags [capabilityCount]bool
}

// Set enables or disables a single capability. Unknown capabilities are ignored.
func (t *Toggles) Set(c Capability, enabled bool) {
	if c.Valid() {
		t.flags[c] = enabled
	}
}

// SetKey is Set addressed by settings key.
func (t *Toggles) SetKey(key string, enabled bool) error {
	c, err := ParseCapability(key)
	if err != nil {
		return err
	}
	t.Set(c, enabled)
	return nil
}

// Enabled reports whether the capability is switched on.
func (t Toggles) Enabled(c Capability) bool {
	return c.Valid() && t.flags[c]
}

// SetAll assigns the same value to every capability (select all / deselect all).
func (t *Toggles) SetAll(enabled bool) {
	for i := range t.flags {
		t.flags[i] = enabled
	}
}

// AllSelected is the state of the "select all" checkbox: true only when
// every capability is enabled.
func (t Toggles) AllSelected() bool {
	return lo.EveryBy(t.flags[:], func(v bool) bool { return v })
}

// AnySelected reports whether at least one capability is enabled.
func (t Toggles) AnySelected() bool {
	return lo.SomeBy(t.flags[:], func(v bool) bool { return v })
}

// Selected returns the enabled capabilities in canonical order.
func (t Toggles) Selected() []Capability {
	return lo.Filter(AllCapabilities(), func(c Capability, _ int) bool { return t.flags[c] })
}

// Map returns the toggles keyed by settings key.
func (t Toggles) Map() map[string]bool {
	out := make(map[string]bool, capabilityCount)
	for _, c := range AllCapabilities() {
		out[c.String()] = t.flags[c]
	}
	return out
}

// MarshalJSON writes every capability key in canonical order.
func (t Toggles) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range AllCapabilities() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(c.String()))
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatBool(t.flags[c]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts an object of capability keys. Values are coerced to
// booleans; keys that do not name a capability are dropped.
func (t *Toggles) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var next Toggles
	for key, value := range raw {
		c, err := ParseCapability(key)
		if err != nil || c.String() != key {
			continue
		}
		next.flags[c] = coerceBool(value)
	}
	*t = next
	return nil
}

func coerceBool(value json.RawMessage) bool {
	var v interface{}
	if err := json.Unmarshal(value, &v); err != nil {
		return false
	}
	switch typed := v.(type) {
	case bool:
		return typed
	case float64:
		return typed != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "true", "1", "yes", "on":
			return true
		}
		return false
	default:
		return false
	}
}

// AnalysisSettings selects which capabilities the backend should run.
type AnalysisSettings struct {
	Toggles
}

// AdvancedSettings selects the higher cost variant per capability. It is
// independent of AnalysisSettings: an advanced flag on a disabled capability
// is carried but has no effect.
type AdvancedSettings struct {
	Toggles
}

// NewAnalysisSettings returns settings with every capability switched off,
// which is the initial state of the dashboard.
func NewAnalysisSettings() AnalysisSettings {
	return AnalysisSettings{}
}

// AllAnalysisSettings returns settings with every capability switched on.
func AllAnalysisSettings() AnalysisSettings {
	var s AnalysisSettings
	s.SetAll(true)
	return s
}
