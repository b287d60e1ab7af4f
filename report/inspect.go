package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Page is what Inspect found on one page of a PDF.
type Page struct {
	Number     int      `json:"number"`
	HasContent bool     `json:"hasContent"`
	Text       []string `json:"text,omitempty"`
}

// Info summarises a PDF.
type Info struct {
	Pages []Page `json:"pages"`
}

// PageCount returns the number of pages.
func (i Info) PageCount() int { return len(i.Pages) }

// Contains reports whether any page shows s as one text run.
func (i Info) Contains(s string) bool {
	for _, p := range i.Pages {
		for _, t := range p.Text {
			if strings.Contains(t, s) {
				return true
			}
		}
	}
	return false
}

// Blank returns the numbers of pages without a content stream.
func (i Info) Blank() []int {
	var out []int
	for _, p := range i.Pages {
		if !p.HasContent {
			out = append(out, p.Number)
		}
	}
	return out
}

// InspectFile opens the PDF at path and inspects it.
func InspectFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return Inspect(f)
}

// Inspect reads a PDF, counts its pages and pulls the shown text out of each
// page's content stream.
func Inspect(rs io.ReadSeeker) (Info, error) {
	ctx, err := pdfcpu.Read(rs, model.NewDefaultConfiguration())
	if err != nil {
		return Info{}, fmt.Errorf("read pdf: %w", err)
	}
	if err := pdfcpu.OptimizeXRefTable(ctx); err != nil {
		return Info{}, fmt.Errorf("optimize xref: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return Info{}, fmt.Errorf("page count: %w", err)
	}

	info := Info{Pages: make([]Page, 0, ctx.PageCount)}
	for i := 1; i <= ctx.PageCount; i++ {
		page := Page{Number: i}
		pageDict, _, _, err := ctx.PageDict(i, false)
		if err != nil {
			return Info{}, fmt.Errorf("page %d dict: %w", i, err)
		}
		if obj, found := pageDict.Find("Contents"); found {
			data, err := contentStream(ctx, obj)
			if err != nil {
				return Info{}, fmt.Errorf("page %d content stream: %w", i, err)
			}
			page.HasContent = len(bytes.TrimSpace(data)) > 0
			page.Text = showText(data)
		}
		info.Pages = append(info.Pages, page)
	}
	return info, nil
}

// contentStream dereferences and decodes a Contents entry, which may be a
// single stream or an array of streams.
func contentStream(ctx *model.Context, obj types.Object) ([]byte, error) {
	obj, err := ctx.Dereference(obj)
	if err != nil {
		return nil, err
	}
	switch v := obj.(type) {
	case types.StreamDict:
		if err := v.Decode(); err != nil {
			return nil, fmt.Errorf("decode stream: %w", err)
		}
		return v.Content, nil
	case types.Array:
		var buf bytes.Buffer
		for _, item := range v {
			data, err := contentStream(ctx, item)
			if err != nil {
				return nil, err
			}
			buf.Write(data)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unexpected Contents type: %T", obj)
}
