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

package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// Printer writes views as plain text with optional ANSI colour.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter writes to w. Headings are colored only when useColor is set.
func NewPrinter(w io.Writer, useColor bool) *Printer {
	return &Printer{w: w, color: useColor}
}

var (
	titleStyle   = color.New(color.FgCyan, color.OpBold)
	headingStyle = color.New(color.FgYellow)
	mutedStyle   = color.New(color.FgGray)
)

func (p *Printer) style(s color.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

// Print writes a single view.
func (p *Printer) Print(v View) error {
	if _, err := fmt.Fprintf(p.w, "%s\n%s\n", p.style(titleStyle, v.Title), strings.Repeat("=", len(v.Title))); err != nil {
		return err
	}
	for _, s := range v.Sections {
		if err := p.section(s, v.Placeholder); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(p.w)
	return err
}

// PrintAll writes the views in order.
func (p *Printer) PrintAll(views []View) error {
	for _, v := range views {
		if err := p.Print(v); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) section(s Section, placeholder bool) error {
	if s.Heading != "" {
		if _, err := fmt.Fprintf(p.w, "\n%s\n", p.style(headingStyle, s.Heading)); err != nil {
			return err
		}
	}
	for _, line := range s.Lines {
		if placeholder {
			line = p.style(mutedStyle, line)
		}
		if _, err := fmt.Fprintf(p.w, "  %s\n", line); err != nil {
			return err
		}
	}
	if s.Table != nil {
		p.table(s.Table)
	}
	return nil
}

func (p *Printer) table(t *Table) {
	table := tablewriter.NewWriter(p.w)
	table.SetHeader(t.Header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.AppendBulk(t.Rows)
	table.Render()
}
