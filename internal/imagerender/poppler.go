package imagerender

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// PopplerRasterizer shells out to poppler's pdftoppm. It is used when an explicit tool
// path is configured instead of the embedded MuPDF renderer.
type PopplerRasterizer struct {
	bin string
}

// NewPoppler accepts either the poppler bin directory or the pdftoppm binary itself.
func NewPoppler(toolPath string) *PopplerRasterizer {
	bin := toolPath
	if fi, err := os.Stat(toolPath); err == nil && fi.IsDir() {
		bin = filepath.Join(toolPath, "pdftoppm")
	}
	return &PopplerRasterizer{bin: bin}
}

// Bin returns the resolved pdftoppm executable.
func (p *PopplerRasterizer) Bin() string { return p.bin }

// Open stages the PDF on disk for pdftoppm. The page count is taken from src, so it
// always agrees with the container the pages are later cut from.
func (p *PopplerRasterizer) Open(src Source) (Document, error) {
	n := src.PageCount()
	dir, err := os.MkdirTemp("", "qrsplit-ppm-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	staged := filepath.Join(dir, "source.pdf")
	if err := os.WriteFile(staged, src.Bytes(), 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to stage PDF: %w", err)
	}
	return &popplerDoc{bin: p.bin, dir: dir, src: staged, pages: n}, nil
}

type popplerDoc struct {
	bin   string
	dir   string
	src   string
	pages int
	seq   int
}

func (d *popplerDoc) NumPage() int { return d.pages }

func (d *popplerDoc) Render(page int, dpi float64) (image.Image, error) {
	if page < 0 || page >= d.pages {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", page, d.pages)
	}
	d.seq++
	prefix := filepath.Join(d.dir, fmt.Sprintf("page-%d-%d", page, d.seq))
	nr := strconv.Itoa(page + 1) // pdftoppm is 1-based

	cmd := exec.Command(d.bin,
		"-r", strconv.FormatFloat(dpi, 'f', -1, 64),
		"-f", nr, "-l", nr,
		"-png", "-singlefile",
		d.src, prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, strings.TrimSpace(string(out)))
	}

	outFile := prefix + ".png"
	defer os.Remove(outFile)
	f, err := os.Open(outFile)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no output for page %d: %w", page, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page %d image: %w", page, err)
	}
	log.Debug().Int("page", page).Str("tool", d.bin).Msg("rendered page with pdftoppm")
	return img, nil
}

func (d *popplerDoc) Close() error { return os.RemoveAll(d.dir) }
