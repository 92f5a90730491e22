// Package filter classifies the classes found in an AOT cache by origin, so
// footprints can be grouped into JDK, framework and application code.
//
// Names are taken in the JVM internal form stored in the cache
// (java/lang/String, [Ljava/lang/Object;, [I). Binary names with dots are
// accepted too and normalised first.
package filter

import (
	"fmt"
	"strings"
	"sync"
)

// ClassCategory represents the category of a class.
type ClassCategory int

const (
	// CategoryUnknown indicates the class category is unknown.
	CategoryUnknown ClassCategory = iota
	// CategoryPrimitive indicates arrays of primitive components.
	CategoryPrimitive
	// CategoryJDK indicates classes shipped with the JDK.
	CategoryJDK
	// CategoryFramework indicates well-known third-party frameworks and libraries.
	CategoryFramework
	// CategoryApplication indicates everything else.
	CategoryApplication
	// CategoryBusiness indicates classes under a configured business prefix.
	CategoryBusiness
	// CategoryGenerated indicates lambda forms, proxies and other generated classes.
	CategoryGenerated
)

var categoryNames = map[ClassCategory]string{
	CategoryUnknown:     "unknown",
	CategoryPrimitive:   "primitive",
	CategoryJDK:         "jdk",
	CategoryFramework:   "framework",
	CategoryApplication: "application",
	CategoryBusiness:    "business",
	CategoryGenerated:   "generated",
}

// String returns the string representation of the category.
func (c ClassCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCategory parses a category name as printed by String.
func ParseCategory(name string) (ClassCategory, error) {
	for c, n := range categoryNames {
		if n == strings.ToLower(name) {
			return c, nil
		}
	}
	return CategoryUnknown, fmt.Errorf("unknown class category %q", name)
}

// ClassFilter classifies class names. It is safe for concurrent use.
type ClassFilter struct {
	mu sync.RWMutex

	jdkPrefixes       []string
	frameworkPrefixes []string
	generatedMarkers  []string
	businessPrefixes  []string

	categoryCache     map[string]ClassCategory
	categoryCacheSize int
}

// NewClassFilter creates a ClassFilter with the default rules.
func NewClassFilter() *ClassFilter {
	return &ClassFilter{
		jdkPrefixes: []string{
			"java/", "javax/", "jdk/", "sun/", "com/sun/", "org/ietf/jgss/",
			"org/w3c/dom/", "org/xml/sax/",
		},
		frameworkPrefixes: []string{
			"org/springframework/", "org/apache/", "io/netty/", "com/google/",
			"com/fasterxml/jackson/", "org/slf4j/", "ch/qos/logback/", "net/bytebuddy/",
			"io/opentelemetry/", "org/hibernate/", "io/micronaut/", "io/quarkus/",
			"kotlin/", "scala/", "org/jboss/", "org/eclipse/",
		},
		generatedMarkers: []string{
			"$$Lambda", "$$EnhancerBy", "$$SpringCGLIB", "$Proxy", "jdk/proxy",
			"com/sun/proxy/", "java/lang/invoke/LambdaForm$",
		},
		categoryCache:     make(map[string]ClassCategory),
		categoryCacheSize: 10000,
	}
}

// Classify returns the category of a class.
func (f *ClassFilter) Classify(className string) ClassCategory {
	if className == "" {
		return CategoryUnknown
	}

	f.mu.RLock()
	if cat, ok := f.categoryCache[className]; ok {
		f.mu.RUnlock()
		return cat
	}
	f.mu.RUnlock()

	cat := f.classifyUncached(className)

	f.mu.Lock()
	if len(f.categoryCache) < f.categoryCacheSize {
		f.categoryCache[className] = cat
	}
	f.mu.Unlock()

	return cat
}

func (f *ClassFilter) classifyUncached(className string) ClassCategory {
	name, primitive := ElementName(strings.ReplaceAll(className, ".", "/"))
	if primitive {
		return CategoryPrimitive
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, marker := range f.generatedMarkers {
		if strings.Contains(name, marker) {
			return CategoryGenerated
		}
	}
	for _, prefix := range f.businessPrefixes {
		if strings.HasPrefix(name, prefix) {
			return CategoryBusiness
		}
	}
	if hasAnyPrefix(name, f.jdkPrefixes) {
		return CategoryJDK
	}
	if hasAnyPrefix(name, f.frameworkPrefixes) {
		return CategoryFramework
	}
	return CategoryApplication
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// ElementName strips array dimensions from an internal class name. For an
// object array it returns the element class; primitive reports whether the
// innermost component is a primitive type.
func ElementName(name string) (elem string, primitive bool) {
	trimmed := strings.TrimLeft(name, "[")
	if len(trimmed) == len(name) {
		return name, false
	}
	if strings.HasPrefix(trimmed, "L") && strings.HasSuffix(trimmed, ";") {
		return trimmed[1 : len(trimmed)-1], false
	}
	return trimmed, len(trimmed) == 1 && strings.ContainsAny(trimmed, "BCDFIJSZ")
}

// IsApplicationLevel reports whether a class is neither JDK, framework,
// primitive nor generated.
func (f *ClassFilter) IsApplicationLevel(className string) bool {
	cat := f.Classify(className)
	return cat == CategoryApplication || cat == CategoryBusiness
}

// AddBusinessPrefix adds a business package prefix. Dotted prefixes are
// converted to the internal form.
func (f *ClassFilter) AddBusinessPrefix(prefix string) {
	prefix = strings.ReplaceAll(prefix, ".", "/")

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.businessPrefixes {
		if p == prefix {
			return
		}
	}
	f.businessPrefixes = append(f.businessPrefixes, prefix)
	f.categoryCache = make(map[string]ClassCategory)
}

// AddBusinessPrefixes adds multiple business package prefixes.
func (f *ClassFilter) AddBusinessPrefixes(prefixes []string) {
	for _, prefix := range prefixes {
		f.AddBusinessPrefix(prefix)
	}
}

// BusinessPrefixes returns the configured business prefixes.
func (f *ClassFilter) BusinessPrefixes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, len(f.businessPrefixes))
	copy(out, f.businessPrefixes)
	return out
}

// ClearCache clears the classification cache.
func (f *ClassFilter) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.categoryCache = make(map[string]ClassCategory)
}

// CacheStats returns cache statistics.
func (f *ClassFilter) CacheStats() (size int, maxSize int) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return len(f.categoryCache), f.categoryCacheSize
}

// SetCacheSize sets the maximum cache size.
func (f *ClassFilter) SetCacheSize(size int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.categoryCacheSize = size
	if len(f.categoryCache) > size {
		f.categoryCache = make(map[string]ClassCategory)
	}
}

// DefaultFilter is the default global filter instance.
var DefaultFilter = NewClassFilter()

// Classify classifies a class using the default filter.
func Classify(className string) ClassCategory {
	return DefaultFilter.Classify(className)
}
