package export

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// findFont locates a system TTF across Linux and Windows paths.
// It returns "" when none of the candidates exist.
func findFont(bold bool) string {
	var candidates []string
	if runtime.GOOS == "windows" {
		winRoot := os.Getenv("WINDIR")
		if winRoot == "" {
			winRoot = `C:\Windows`
		}
		if bold {
			candidates = []string{
				winRoot + `\Fonts\arialbd.ttf`,
				winRoot + `\Fonts\Arial Bold.ttf`,
			}
		} else {
			candidates = []string{
				winRoot + `\Fonts\arial.ttf`,
				winRoot + `\Fonts\Arial.ttf`,
			}
		}
	} else {
		if bold {
			candidates = []string{
				"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
				"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
				"/usr/share/fonts/dejavu/DejaVuSans-Bold.ttf",
			}
		} else {
			candidates = []string{
				"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
				"/usr/share/fonts/TTF/DejaVuSans.ttf",
				"/usr/share/fonts/dejavu/DejaVuSans.ttf",
			}
		}
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadFace sets the drawing font. System fonts are preferred for their
// wider script coverage; the embedded Go fonts are the fallback.
func loadFace(dc *gg.Context, bold bool, size float64) error {
	if path := findFont(bold); path != "" {
		if err := dc.LoadFontFace(path, size); err == nil {
			return nil
		}
	}

	ttf := goregular.TTF
	if bold {
		ttf = gobold.TTF
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return fmt.Errorf("parse embedded font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: size}))
	return nil
}

// wrapText splits text into multiple lines to fit within maxWidth.
// Explicit newlines are kept as line breaks.
func wrapText(dc *gg.Context, text string, maxWidth float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.TrimSpace(text), "\n") {
		lines = append(lines, wrapLine(dc, strings.TrimSpace(para), maxWidth)...)
	}
	return lines
}

func wrapLine(dc *gg.Context, text string, maxWidth float64) []string {
	if maxWidth <= 0 {
		return []string{text}
	}

	w, _ := dc.MeasureString(text)
	if w <= maxWidth {
		return []string{text}
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	currentLine := words[0]

	for _, word := range words[1:] {
		testLine := currentLine + " " + word
		tw, _ := dc.MeasureString(testLine)
		if tw > maxWidth {
			lines = append(lines, currentLine)
			currentLine = word
		} else {
			currentLine = testLine
		}
	}
	lines = append(lines, currentLine)
	return lines
}
