// Package export renders dashboard data into clipboard-friendly text.
package export

import (
	"strconv"
	"strings"

	"github.com/mkrasov/foundry/internal/upstream"
)

// MaterialList renders one "<quantity> <name>" line per material, in the
// list's order. Quantities arrive pre-rounded upstream; no rounding or unit
// conversion happens here.
func MaterialList(materials upstream.MaterialList) string {
	var b strings.Builder
	for _, m := range materials {
		b.WriteString(strconv.FormatFloat(m.Quantity, 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(m.Name.String())
		b.WriteByte('\n')
	}
	return b.String()
}
