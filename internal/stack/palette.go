package stack

// DefaultColors is the fixed cycle used to colour applications.
var DefaultColors = []string{
	"#1890FF",
	"#F04864",
	"#2FC25B",
	"#FACC14",
	"#13C2C2",
	"#8543E0",
}

// LegendEntry maps one application code to its bar colour.
type LegendEntry struct {
	ApplicationCode string `json:"applicationCode"`
	Color           string `json:"color"`
}

// Palette assigns colours to application codes in first-seen order,
// wrapping around once every colour has been handed out.
type Palette struct {
	colors []string
	next   int
	byCode map[string]string
	order  []string
}

// NewPalette returns a Palette cycling through colors.
// An empty slice falls back to DefaultColors.
func NewPalette(colors []string) *Palette {
	if len(colors) == 0 {
		colors = DefaultColors
	}
	return &Palette{
		colors: colors,
		byCode: make(map[string]string),
	}
}

// Color returns the colour for code, assigning the next one in the cycle on first sight.
func (p *Palette) Color(code string) string {
	if c, ok := p.byCode[code]; ok {
		return c
	}
	c := p.colors[p.next]
	p.next = (p.next + 1) % len(p.colors)
	p.byCode[code] = c
	p.order = append(p.order, code)
	return c
}

// Legend returns every assigned code in first-seen order.
func (p *Palette) Legend() []LegendEntry {
	legend := make([]LegendEntry, len(p.order))
	for i, code := range p.order {
		legend[i] = LegendEntry{ApplicationCode: code, Color: p.byCode[code]}
	}
	return legend
}
