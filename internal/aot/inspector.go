package aot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/aot-inspect/pkg/errors"
	"github.com/aot-inspect/pkg/telemetry"
	"github.com/aot-inspect/pkg/utils"
)

// ClassEntry is a class record with its resolved name.
type ClassEntry struct {
	Name   string `json:"name"`
	Record Record `json:"record"`
}

// Size returns the record's footprint.
func (e ClassEntry) Size() int64 {
	return e.Record.Size()
}

// Inspector answers queries about AOT cache files. Every query opens the file,
// runs one complete decode pass and closes it again; nothing is cached
// between calls.
type Inspector struct {
	logger  utils.Logger
	open    Opener
	tracer  trace.Tracer
	clock   utils.Clock
	profile *LayoutProfile
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(in *Inspector) { in.logger = logger }
}

// WithOpener replaces how cache paths are opened.
func WithOpener(open Opener) Option {
	return func(in *Inspector) { in.open = open }
}

// WithTracer sets the tracer used for per-query spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(in *Inspector) { in.tracer = tracer }
}

// WithClock sets the clock used for stage timings.
func WithClock(clock utils.Clock) Option {
	return func(in *Inspector) { in.clock = clock }
}

// WithLayoutProfile forces a record layout profile instead of selecting one
// from the header version.
func WithLayoutProfile(p LayoutProfile) Option {
	return func(in *Inspector) { in.profile = &p }
}

// NewInspector creates an inspector.
func NewInspector(opts ...Option) *Inspector {
	in := &Inspector{
		logger: &utils.NullLogger{},
		open:   Open,
		tracer: telemetry.Tracer(),
		clock:  utils.NewRealClock(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// pass holds everything one decode pass produced.
type pass struct {
	header     *Header
	entries    []ClassEntry
	violations *multierror.Error
	candidates int
	dropped    int
}

// Header decodes the file header.
func (in *Inspector) Header(ctx context.Context, path string) (*Header, error) {
	p, err := in.run(ctx, "header", path, false)
	if err != nil {
		return nil, err
	}
	return p.header, nil
}

// ListClasses returns every class record in the rw region whose name
// resolves. Records that violate the layout are left out and reported in a
// *multierror.Error alongside the valid entries.
func (in *Inspector) ListClasses(ctx context.Context, path string) ([]ClassEntry, error) {
	p, err := in.run(ctx, "list", path, true)
	if err != nil {
		return nil, err
	}
	return p.entries, p.violations.ErrorOrNil()
}

// FindClass returns the first record named name. Both the internal form
// (java/lang/String) and the binary form (java.lang.String) match.
func (in *Inspector) FindClass(ctx context.Context, path, name string) (*ClassEntry, error) {
	p, err := in.run(ctx, "print", path, true)
	if err != nil {
		return nil, err
	}
	if e := lookup(p.entries, name); e != nil {
		return e, nil
	}
	return nil, notFound(name, p.violations)
}

// ClassSize returns the footprint in bytes of the class named name.
func (in *Inspector) ClassSize(ctx context.Context, path, name string) (int64, error) {
	p, err := in.run(ctx, "size", path, true)
	if err != nil {
		return 0, err
	}
	if e := lookup(p.entries, name); e != nil {
		return e.Size(), nil
	}
	return 0, notFound(name, p.violations)
}

// ClassSizes returns the footprint of each named class present in the
// cache, keyed by the name as given. Missing classes are absent from the map.
// As with ListClasses, layout violations come back as a *multierror.Error
// alongside a valid map.
func (in *Inspector) ClassSizes(ctx context.Context, path string, names []string) (map[string]int64, error) {
	p, err := in.run(ctx, "sizes", path, true)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(names))
	for _, name := range names {
		if e := lookup(p.entries, name); e != nil {
			out[name] = e.Size()
		}
	}
	return out, p.violations.ErrorOrNil()
}

// MatchName reports whether a stored class name matches a query in either
// internal or binary form.
func MatchName(stored, query string) bool {
	return stored == query || stored == strings.ReplaceAll(query, ".", "/")
}

func lookup(entries []ClassEntry, name string) *ClassEntry {
	for i := range entries {
		if MatchName(entries[i].Name, name) {
			return &entries[i]
		}
	}
	return nil
}

func notFound(name string, violations *multierror.Error) error {
	err := apperrors.Wrap(apperrors.CodeNotFound, fmt.Sprintf("class %s not found", name), ErrClassNotFound)
	if violations.ErrorOrNil() != nil {
		return errors.Join(err, violations)
	}
	return err
}

func (in *Inspector) run(ctx context.Context, op, path string, classes bool) (p *pass, err error) {
	ctx, span := in.tracer.Start(ctx, "aot."+op, trace.WithAttributes(attribute.String("aot.path", path)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log := in.logger.WithFields(map[string]interface{}{"op": op, "file": path})
	timer := utils.NewStageTimer(op, in.clock)
	defer timer.Log(log)

	src, err := in.open(path)
	if err != nil {
		return nil, classify("open cache", err)
	}
	defer src.Close()

	p = &pass{}
	size := src.Size()

	err = in.stage(ctx, timer, "header", func(context.Context) error {
		p.header, err = DecodeHeader(NewCursor(src, size))
		return err
	})
	if err != nil {
		return nil, classify("decode header", err)
	}
	if !classes {
		return p, nil
	}

	var regions [NumRegions]RegionSnapshot
	err = in.stage(ctx, timer, "regions", func(context.Context) error {
		regions, err = LoadRegions(src, size, p.header)
		return err
	})
	if err != nil {
		return nil, classify("load regions", err)
	}

	base := p.header.FileMap.RequestedBaseAddress
	rw := &regions[RegionRW]
	var candidates []Candidate
	in.step(ctx, timer, "scan", func() {
		candidates = Scan(rw.Data, SignaturesFor(base))
	})
	p.candidates = len(candidates)

	profile := ProfileFor(p.header.Generic.Version)
	if in.profile != nil {
		profile = *in.profile
	}
	resolver := NewSymbolResolver(NewCursor(src, size), base)

	err = in.stage(ctx, timer, "decode", func(ctx context.Context) error {
		return in.decodeAll(ctx, log, p, rw, candidates, resolver, profile)
	})
	if err != nil {
		return nil, classify("decode classes", err)
	}

	log.Info("decoded %d classes from %d candidates (%d dropped, %d layout violations)",
		len(p.entries), p.candidates, p.dropped, len(p.violations.WrappedErrors()))
	span.SetAttributes(
		attribute.Int("aot.candidates", p.candidates),
		attribute.Int("aot.classes", len(p.entries)),
		attribute.Int("aot.dropped", p.dropped),
	)
	return p, nil
}

func (in *Inspector) decodeAll(ctx context.Context, log utils.Logger, p *pass, rw *RegionSnapshot,
	candidates []Candidate, resolver *SymbolResolver, profile LayoutProfile) error {
	c := rw.Cursor()
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := DecodeRecord(c, cand.Offset, profile)
		if err != nil {
			var le *LayoutError
			switch {
			case errors.As(err, &le):
				log.Warn("%v", le)
				p.violations = multierror.Append(p.violations, le)
			case IsRecordNoise(err):
				log.Debug("drop %s candidate at rw+0x%x: %v", cand.Signature, cand.Offset, err)
				p.dropped++
			default:
				return err
			}
			continue
		}

		name, ok, err := resolver.Resolve(rec.Common().NamePtr)
		if err != nil && !IsRecordNoise(err) {
			return err
		}
		if err != nil || !ok {
			log.Debug("drop %s candidate at rw+0x%x: unresolvable name 0x%x", cand.Signature, cand.Offset, rec.Common().NamePtr)
			p.dropped++
			continue
		}
		rec.Common().Name = name
		p.entries = append(p.entries, ClassEntry{Name: name, Record: rec})
	}
	return nil
}

func (in *Inspector) stage(ctx context.Context, timer *utils.StageTimer, name string, fn func(context.Context) error) error {
	ctx, span := in.tracer.Start(ctx, "aot.stage."+name)
	defer span.End()

	err := timer.Time(name, func() error { return fn(ctx) })
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// step times a stage that cannot fail.
func (in *Inspector) step(ctx context.Context, timer *utils.StageTimer, name string, fn func()) {
	_, span := in.tracer.Start(ctx, "aot.stage."+name)
	defer span.End()
	defer timer.Start(name)()
	fn()
}

// classify wraps a fatal pass error in a coded application error.
func classify(msg string, err error) error {
	code := apperrors.CodeIOError
	switch {
	case errors.Is(err, ErrFormat):
		code = apperrors.CodeInvalidFormat
	case errors.Is(err, ErrTruncated):
		code = apperrors.CodeTruncated
	case errors.Is(err, ErrLayout):
		code = apperrors.CodeLayoutError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return apperrors.Wrap(code, msg, err)
}
