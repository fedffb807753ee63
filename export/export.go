// Package export captures storybook pages one by one and assembles them into
// a PDF document.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sbadm/common"
	"sbadm/config"
	"sbadm/entity"
	imgutil "sbadm/utils/images"
)

// frameDPI is resolution stamped into JPEG frames.
const frameDPI = 300

var (
	ErrNoPages    = errors.New("storybook has no pages")
	ErrNoCaptures = errors.New("no page could be captured")
)

// Pager switches active page and captures whatever is rendered for it.
type Pager interface {
	Active() int
	SetActive(index int)
	Capture(ctx context.Context) (image.Image, error)
}

// Preparer is implemented by pagers which have to download page assets
// before capture. Preparation has its own time budget, settle delay bounds
// rendering only.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// PageStatus is reported after every page attempt.
type PageStatus struct {
	Index int
	Total int
	Err   error
}

type Progress func(PageStatus)

// PageFailure records page which did not make it into the document.
type PageFailure struct {
	Index int
	Err   error
}

type Result struct {
	PDF      []byte
	Name     string
	Captured int
	Failures []PageFailure
}

// Err combines all page failures, nil when every page was captured.
func (r *Result) Err() error {
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, fmt.Errorf("page %d: %w", f.Index+1, f.Err))
	}
	return err
}

type Exporter struct {
	cfg      *config.ExportConfig
	pager    Pager
	progress Progress
	rpt      *config.Report
	log      *zap.Logger
}

// New creates exporter. Progress and rpt may be nil, captured frames are
// stored into debug report when it is present.
func New(cfg *config.ExportConfig, pager Pager, progress Progress, rpt *config.Report, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{cfg: cfg, pager: pager, progress: progress, rpt: rpt, log: log.Named("export")}
}

func (e *Exporter) report(st PageStatus) {
	if e.progress != nil {
		e.progress(st)
	}
}

// Export captures every page of the book in order. Page failures are
// recorded and do not stop the export, originally active page is restored
// in any case.
func (e *Exporter) Export(ctx context.Context, book *entity.Storybook) (*Result, error) {
	if book == nil || len(book.Pages) == 0 {
		return nil, ErrNoPages
	}
	total := len(book.Pages)

	active := e.pager.Active()
	defer e.pager.SetActive(active)

	res := &Result{Name: FileName(book, e.cfg, e.log)}
	frames := make([]io.Reader, 0, total)
	for i := range total {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := e.capture(ctx, i)
		if err != nil {
			e.log.Warn("Page capture failed", zap.Int("page", i+1), zap.Error(err))
			res.Failures = append(res.Failures, PageFailure{Index: i, Err: err})
			e.report(PageStatus{Index: i, Total: total, Err: err})
			continue
		}
		e.rpt.StoreData(fmt.Sprintf("frames/%03d%s", i+1, frameExt(e.cfg.Format)), frame)
		frames = append(frames, bytes.NewReader(frame))
		res.Captured++
		e.report(PageStatus{Index: i, Total: total})
	}
	if len(frames) == 0 {
		return res, multierr.Append(ErrNoCaptures, res.Err())
	}

	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, frames, pdfcpu.DefaultImportConfig(), model.NewDefaultConfiguration()); err != nil {
		return res, fmt.Errorf("unable to assemble PDF: %w", err)
	}
	res.PDF = buf.Bytes()
	e.log.Debug("PDF assembled", zap.String("name", res.Name), zap.Int("pages", res.Captured), zap.Int("failed", len(res.Failures)), zap.Int("size", len(res.PDF)))
	return res, nil
}

// capture activates page, lets pager fetch its assets within fetch timeout,
// waits for it to be rendered no longer than settle delay and encodes
// result.
func (e *Exporter) capture(ctx context.Context, index int) ([]byte, error) {
	e.pager.SetActive(index)

	if p, ok := e.pager.(Preparer); ok {
		fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
		err := p.Prepare(fctx)
		cancel()
		if err != nil {
			return nil, err
		}
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.SettleDelay)
	defer cancel()

	img, err := e.pager.Capture(cctx)
	if err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("nothing rendered")
	}
	return EncodeFrame(img, e.cfg.Format, e.cfg.JPEGQuality)
}

func frameExt(f common.FrameFormat) string {
	if f == common.FrameFormatPng {
		return ".png"
	}
	return ".jpg"
}

// EncodeFrame compresses captured page. Grayscale pages are stored as
// single channel images.
func EncodeFrame(img image.Image, format common.FrameFormat, quality int) ([]byte, error) {
	if imgutil.IsGrayscale(img) {
		img = imgutil.ToGray(img)
	}
	if format == common.FrameFormatPng {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, fmt.Errorf("unable to encode frame: %w", err)
		}
		return buf.Bytes(), nil
	}
	data, err := imgutil.EncodeJPEGWithDPI(img, quality, imgutil.DpiPxPerInch, frameDPI, frameDPI)
	if err != nil {
		return nil, fmt.Errorf("unable to encode frame: %w", err)
	}
	return data, nil
}
