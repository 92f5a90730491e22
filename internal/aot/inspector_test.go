package aot

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/aot-inspect/pkg/compression"
	apperrors "github.com/aot-inspect/pkg/errors"
	"github.com/aot-inspect/pkg/utils"
)

// stringSize is the decoded size of the String record in sampleCache: three
// vtable slots, a five-word itable (one interface pair, the terminator pair,
// one method) and one oop map block.
const stringSize = int64(InstanceKlassSize + (3+5+1)*8)

// sampleCache builds a cache with String, an Object[] array and an int[] array.
func sampleCache() *cacheBuilder {
	b := newCacheBuilder()
	str := b.symbol("java/lang/String")
	objArr := b.symbol("[Ljava/lang/Object;")
	intArr := b.symbol("[I")

	shape := instanceShape(str)
	shape.vtable = []uint64{testBase + 0x100, testBase + 0x108, testBase + 0x110}
	shape.itable = itableWords([]InterfaceEntry{{Klass: testBase + 0x4000, Offset: 0x1d8}}, testBase+0x200)
	shape.oopMaps = []OopMapBlock{{Offset: 12, Count: 1}}
	b.instance(shape)
	b.objArray(objArr, testBase+0x700, []uint64{testBase + 0x100})
	b.typeArray(intArr, 0x7ffffff0)
	return b
}

func names(entries []ClassEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestInspector_ListClasses(t *testing.T) {
	path := sampleCache().write(t)
	in := NewInspector()

	entries, err := in.ListClasses(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"java/lang/String", "[Ljava/lang/Object;", "[I"}, names(entries))

	assert.Equal(t, stringSize, entries[0].Size())
	assert.Equal(t, int64(ObjArrayKlassSize+8), entries[1].Size())
	assert.Equal(t, int64(TypeArrayKlassSize), entries[2].Size())
	assert.Equal(t, "java/lang/String", entries[0].Record.Common().Name)
}

func TestInspector_ClassSize(t *testing.T) {
	path := sampleCache().write(t)
	in := NewInspector()
	want := stringSize

	for _, name := range []string{"java.lang.String", "java/lang/String"} {
		t.Run(name, func(t *testing.T) {
			size, err := in.ClassSize(context.Background(), path, name)
			require.NoError(t, err)
			assert.Equal(t, want, size)
		})
	}
}

func TestInspector_ClassSizes(t *testing.T) {
	path := sampleCache().write(t)

	sizes, err := NewInspector().ClassSizes(context.Background(), path,
		[]string{"java.lang.String", "[I", "java.lang.Missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		"java.lang.String": stringSize,
		"[I":               TypeArrayKlassSize,
	}, sizes)
}

func TestInspector_SupplementaryCharacterName(t *testing.T) {
	b := newCacheBuilder()
	b.instance(instanceShape(b.symbol("com/example/Ok")))
	b.instance(instanceShape(b.symbol("com/example/X\xed\xa0\xbd\xed\xb8\x80")))
	path := b.write(t)
	in := NewInspector()

	entries, err := in.ListClasses(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"com/example/Ok", "com/example/X\U0001F600"}, names(entries))

	size, err := in.ClassSize(context.Background(), path, "com.example.X\U0001F600")
	require.NoError(t, err)
	assert.Equal(t, int64(InstanceKlassSize), size)
}

func TestInspector_FindClass(t *testing.T) {
	path := sampleCache().write(t)

	e, err := NewInspector().FindClass(context.Background(), path, "[Ljava.lang.Object;")
	require.NoError(t, err)
	oak, ok := e.Record.(*ObjArrayKlass)
	require.True(t, ok)
	assert.Equal(t, testBase+0x700, oak.ElementKlass)
}

func TestInspector_ClassNotFound(t *testing.T) {
	path := sampleCache().write(t)

	_, err := NewInspector().ClassSize(context.Background(), path, "com.example.Missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClassNotFound))
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, 2, apperrors.ExitCode(err))
	assert.Contains(t, err.Error(), "com.example.Missing")
}

func TestInspector_EmptyRegions(t *testing.T) {
	path := newCacheBuilder().write(t)
	in := NewInspector()

	h, err := in.Header(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), h.Region(RegionRW).Used)

	entries, err := in.ListClasses(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInspector_BadMagic(t *testing.T) {
	b := sampleCache()
	b.magic = 0xdeadbeef
	path := b.write(t)

	_, err := NewInspector().ListClasses(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
	assert.Equal(t, apperrors.CodeInvalidFormat, apperrors.GetErrorCode(err))
	assert.Equal(t, 1, apperrors.ExitCode(err))
}

func TestInspector_TruncatedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.aot")
	require.NoError(t, os.WriteFile(path, sampleCache().bytes()[:600], 0o644))

	_, err := NewInspector().Header(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncated))
	assert.Equal(t, apperrors.CodeTruncated, apperrors.GetErrorCode(err))
}

func TestInspector_RegionPastEOF(t *testing.T) {
	data := sampleCache().bytes()
	path := filepath.Join(t.TempDir(), "cut.aot")
	require.NoError(t, os.WriteFile(path, data[:len(data)-16], 0o644))
	in := NewInspector()

	_, err := in.Header(context.Background(), path)
	require.NoError(t, err, "header queries do not load regions")

	_, err = in.ListClasses(context.Background(), path)
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestInspector_MissingFile(t *testing.T) {
	_, err := NewInspector().Header(context.Background(), filepath.Join(t.TempDir(), "nope.aot"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIOError, apperrors.GetErrorCode(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestInspector_DropsNoise(t *testing.T) {
	b := newCacheBuilder()
	name := b.symbol("java/lang/Object")
	b.instance(instanceShape(name))
	// unresolvable name pointer
	b.instance(instanceShape(testBase + 0x7fffffff))
	// an unknown kind
	b.instance(recordShape{kind: KlassKind(42), sigDelta: deltaInstanceKlass, namePtr: name})
	// a signature in the last word cannot hold a record
	b.word(testBase + deltaTypeArrayKlass)
	path := b.write(t)

	var logs bytes.Buffer
	in := NewInspector(WithLogger(utils.NewDefaultLogger(utils.LevelDebug, &logs)))

	entries, err := in.ListClasses(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"java/lang/Object"}, names(entries))
	assert.Contains(t, logs.String(), "unresolvable name")
	assert.Contains(t, logs.String(), "decoded 1 classes from 4 candidates (3 dropped, 0 layout violations)")
}

func TestInspector_LayoutViolationIsolated(t *testing.T) {
	b := newCacheBuilder()
	a := b.symbol("com/example/A")
	bad := b.symbol("com/example/Bad")
	c := b.symbol("com/example/C")

	b.instance(instanceShape(a))
	shape := instanceShape(bad)
	shape.itableLen = int32p(-1)
	badOff := b.instance(shape)
	b.instance(instanceShape(c))
	path := b.write(t)

	var logs bytes.Buffer
	in := NewInspector(WithLogger(utils.NewDefaultLogger(utils.LevelWarn, &logs)))

	entries, err := in.ListClasses(context.Background(), path)
	assert.Equal(t, []string{"com/example/A", "com/example/C"}, names(entries))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLayout))

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 1)
	var layoutErr *LayoutError
	require.ErrorAs(t, merr.Errors[0], &layoutErr)
	assert.Equal(t, badOff, layoutErr.Offset)
	assert.Contains(t, logs.String(), "[WARN]")

	size, err := in.ClassSize(context.Background(), path, "com.example.C")
	require.NoError(t, err)
	assert.Equal(t, int64(InstanceKlassSize), size)

	_, err = in.ClassSize(context.Background(), path, "com.example.Bad")
	assert.True(t, errors.Is(err, ErrClassNotFound))
	assert.True(t, errors.Is(err, ErrLayout), "violations travel with not-found")

	sizes, err := in.ClassSizes(context.Background(), path, []string{"com.example.A", "com.example.Bad"})
	require.ErrorAs(t, err, &merr)
	assert.True(t, errors.Is(err, ErrLayout))
	assert.Equal(t, map[string]int64{"com.example.A": InstanceKlassSize}, sizes)
}

func TestInspector_ClosesSource(t *testing.T) {
	data := sampleCache().bytes()
	var opened, closed int
	open := func(string) (Source, error) {
		opened++
		return &trackingSource{Source: NewMemSource(data), onClose: func() { closed++ }}, nil
	}
	in := NewInspector(WithOpener(open))

	_, err := in.ListClasses(context.Background(), "mem")
	require.NoError(t, err)
	_, err = in.Header(context.Background(), "mem")
	require.NoError(t, err)
	_, err = in.ClassSize(context.Background(), "mem", "nope")
	require.Error(t, err)

	assert.Equal(t, 3, opened)
	assert.Equal(t, 3, closed)
}

type trackingSource struct {
	Source
	onClose func()
}

func (s *trackingSource) Close() error {
	s.onClose()
	return s.Source.Close()
}

func TestInspector_CanceledContext(t *testing.T) {
	path := sampleCache().write(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewInspector().ListClasses(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInspector_CompressedInput(t *testing.T) {
	data := sampleCache().bytes()

	for _, typ := range []compression.Type{compression.TypeGzip, compression.TypeZstd} {
		t.Run(typ.String(), func(t *testing.T) {
			comp, err := compression.New(typ, compression.LevelDefault)
			require.NoError(t, err)
			defer compression.Close(comp)

			packed, err := comp.Compress(data)
			require.NoError(t, err)
			path := filepath.Join(t.TempDir(), "app.aot")
			require.NoError(t, os.WriteFile(path, packed, 0o644))

			size, err := NewInspector().ClassSize(context.Background(), path, "java.lang.String")
			require.NoError(t, err)
			assert.Equal(t, stringSize, size)
		})
	}
}

func TestInspector_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	path := sampleCache().write(t)
	in := NewInspector(WithTracer(tp.Tracer("test")))
	_, err := in.ListClasses(context.Background(), path)
	require.NoError(t, err)

	var spanNames []string
	for _, s := range sr.Ended() {
		spanNames = append(spanNames, s.Name())
	}
	assert.Equal(t, []string{
		"aot.stage.header", "aot.stage.regions", "aot.stage.scan", "aot.stage.decode", "aot.list",
	}, spanNames)
}

func TestMatchName(t *testing.T) {
	assert.True(t, MatchName("java/lang/String", "java/lang/String"))
	assert.True(t, MatchName("java/lang/String", "java.lang.String"))
	assert.True(t, MatchName("java/util/Map$Entry", "java.util.Map$Entry"))
	assert.False(t, MatchName("java/lang/String", "java/lang/StringBuilder"))
	assert.False(t, MatchName("java.lang.String", "java/lang/String"))
}
